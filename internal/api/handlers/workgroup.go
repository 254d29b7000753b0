package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jart/sparkles/internal/api/envelope"
)

// CreateWorkgroup godoc
// @Summary Create a workgroup
// @Description Create a named workgroup; the creator becomes its first member
// @Tags workgroups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,content=string} true "Workgroup details"
// @Success 200 {object} envelope.Envelope
// @Failure 400 {object} envelope.Envelope
// @Router /api/workgroup [post]
func (h *Handler) CreateWorkgroup(c *gin.Context) {
	userID := c.GetString("user_id")

	var request struct {
		Name    string `json:"name" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "workgroup name is required")
		return
	}

	wg, err := h.workgroups.Create(c.Request.Context(), userID, request.Name, request.Content)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, wg)
}

// JoinWorkgroup godoc
// @Summary Join a workgroup
// @Tags workgroups
// @Produce json
// @Security BearerAuth
// @Param name path string true "Workgroup name"
// @Success 200 {object} envelope.Envelope
// @Failure 404 {object} envelope.Envelope
// @Router /api/workgroup/{name}/join [post]
func (h *Handler) JoinWorkgroup(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.workgroups.Join(c.Request.Context(), userID, c.Param("name")); err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"joined": c.Param("name")})
}

// GetWorkgroup godoc
// @Summary Show a workgroup and its members
// @Tags workgroups
// @Produce json
// @Security BearerAuth
// @Param name path string true "Workgroup name"
// @Success 200 {object} envelope.Envelope
// @Failure 404 {object} envelope.Envelope
// @Router /api/workgroup/{name} [get]
func (h *Handler) GetWorkgroup(c *gin.Context) {
	wg, members, err := h.workgroups.Members(c.Request.Context(), c.Param("name"))
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"workgroup": wg, "members": members})
}
