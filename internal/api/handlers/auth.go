package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/jart/sparkles/internal/api/envelope"
	"github.com/jart/sparkles/internal/api/middleware"
	"github.com/jart/sparkles/internal/auth"
	"github.com/jart/sparkles/internal/signup"
)

// SignupBegin godoc
// @Summary Start a signup
// @Description Validate the claimed identity and send verification codes to each contact channel
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signup.Form true "Identity claims"
// @Success 200 {object} envelope.Envelope "results[0].token resumes the signup"
// @Failure 400 {object} envelope.Envelope
// @Router /auth/signup [post]
func (h *Handler) SignupBegin(c *gin.Context) {
	var form signup.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		envelope.Error(c, http.StatusBadRequest, "username, password, email and phone are required")
		return
	}

	token, err := h.signups.Begin(c.Request.Context(), &form, middleware.ClientIP(c))
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"token": token})
}

// SignupConfirm godoc
// @Summary Finish a signup
// @Description Check the verification codes and create the account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signup.Codes true "Verification codes"
// @Success 200 {object} envelope.Envelope "results[0] holds the user and a session token"
// @Failure 400 {object} envelope.Envelope
// @Router /auth/signup/confirm [post]
func (h *Handler) SignupConfirm(c *gin.Context) {
	var codes signup.Codes
	if err := c.ShouldBindJSON(&codes); err != nil {
		envelope.Error(c, http.StatusBadRequest, "token and verification codes are required")
		return
	}

	user, err := h.signups.Confirm(c.Request.Context(), &codes)
	if err != nil {
		envelope.Fail(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{
		"user":  gin.H{"id": user.ID, "username": user.Username, "email": user.Email},
		"token": token,
	})
}

// Login godoc
// @Summary Login user
// @Description Authenticate by username and password, returning a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} envelope.Envelope
// @Failure 401 {object} envelope.Envelope
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var credentials struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		envelope.Error(c, http.StatusBadRequest, "username and password are required")
		return
	}

	var userID, storedHash string
	err := h.db.QueryRow(
		"SELECT id, password FROM users WHERE LOWER(username) = LOWER(?)",
		credentials.Username).Scan(&userID, &storedHash)
	if err == sql.ErrNoRows {
		envelope.Error(c, http.StatusUnauthorized, "invalid username or password")
		return
	} else if err != nil {
		envelope.Fail(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(credentials.Password)) != nil {
		envelope.Error(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateToken(userID)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"token": token})
}
