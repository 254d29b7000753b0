package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jart/sparkles/internal/api/envelope"
	"github.com/jart/sparkles/internal/api/middleware"
)

// VerifyEmail godoc
// @Summary Send an email verification code
// @Description Issue a 4-character code to the given email address, subject to daily caps
// @Tags verify
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Email address to verify"
// @Success 200 {object} envelope.Envelope
// @Failure 400 {object} envelope.Envelope
// @Router /auth/verify/email [post]
func (h *Handler) VerifyEmail(c *gin.Context) {
	var request struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.verifier.Email(c.Request.Context(), request.Email, middleware.ClientIP(c)); err != nil {
		envelope.FailChannel(c, "invalid email address", err)
		return
	}
	envelope.OK(c)
}

// VerifyPhone godoc
// @Summary Send an SMS verification code
// @Description Issue a 4-character code to the given US/CA phone number, subject to daily caps
// @Tags verify
// @Accept json
// @Produce json
// @Param request body object{phone=string} true "Phone number to verify"
// @Success 200 {object} envelope.Envelope
// @Failure 400 {object} envelope.Envelope
// @Router /auth/verify/phone [post]
func (h *Handler) VerifyPhone(c *gin.Context) {
	var request struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "invalid phone number")
		return
	}

	if err := h.verifier.Phone(c.Request.Context(), request.Phone, middleware.ClientIP(c)); err != nil {
		envelope.FailChannel(c, "invalid phone number", err)
		return
	}
	envelope.OK(c)
}

// VerifyXmpp godoc
// @Summary Send an XMPP verification code
// @Description Issue a 4-character code to the given XMPP address, subject to daily caps
// @Tags verify
// @Accept json
// @Produce json
// @Param request body object{xmpp=string} true "XMPP address to verify"
// @Success 200 {object} envelope.Envelope
// @Failure 400 {object} envelope.Envelope
// @Router /auth/verify/xmpp [post]
func (h *Handler) VerifyXmpp(c *gin.Context) {
	var request struct {
		Xmpp string `json:"xmpp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "invalid xmpp address")
		return
	}

	if err := h.verifier.Xmpp(c.Request.Context(), request.Xmpp, middleware.ClientIP(c)); err != nil {
		envelope.FailChannel(c, "invalid xmpp address", err)
		return
	}
	envelope.OK(c)
}
