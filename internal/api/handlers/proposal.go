package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jart/sparkles/internal/api/envelope"
)

// CreateProposal godoc
// @Summary Create a proposal
// @Description Create a proposal with its first text revision; the creator becomes a member
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,text=string,workgroup_id=string} true "Proposal details"
// @Success 200 {object} envelope.Envelope
// @Failure 400 {object} envelope.Envelope
// @Router /api/proposal [post]
func (h *Handler) CreateProposal(c *gin.Context) {
	userID := c.GetString("user_id")

	var request struct {
		Title       string `json:"title" binding:"required"`
		Text        string `json:"text" binding:"required"`
		WorkgroupID string `json:"workgroup_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "title and text are required")
		return
	}

	p, err := h.proposals.Create(c.Request.Context(), userID, request.Title, request.Text, request.WorkgroupID)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, p)
}

// GetProposal godoc
// @Summary Show a proposal
// @Description Return the proposal, its latest text revision, vote tally, and action log
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Proposal sid"
// @Success 200 {object} envelope.Envelope
// @Failure 404 {object} envelope.Envelope
// @Router /api/proposal/{sid} [get]
func (h *Handler) GetProposal(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.Param("sid")

	p, text, err := h.proposals.Get(ctx, sid)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	tally, err := h.proposals.Tally(ctx, sid)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	entries, err := h.proposals.Log(ctx, sid)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{
		"proposal": p,
		"text":     text,
		"tally":    tally,
		"log":      entries,
	})
}

// AddProposalText godoc
// @Summary Revise a proposal's text
// @Description Append a new text revision; the latest revision wins
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Proposal sid"
// @Param request body object{text=string} true "New text"
// @Success 200 {object} envelope.Envelope
// @Failure 403 {object} envelope.Envelope
// @Router /api/proposal/{sid}/text [post]
func (h *Handler) AddProposalText(c *gin.Context) {
	userID := c.GetString("user_id")

	var request struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "text is required")
		return
	}

	if err := h.proposals.AddText(c.Request.Context(), c.Param("sid"), userID, request.Text); err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"revised": c.Param("sid")})
}

// AddProposalChat godoc
// @Summary Post a chat message on a proposal
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Proposal sid"
// @Param request body object{content=string} true "Chat message"
// @Success 200 {object} envelope.Envelope
// @Failure 403 {object} envelope.Envelope
// @Router /api/proposal/{sid}/chat [post]
func (h *Handler) AddProposalChat(c *gin.Context) {
	userID := c.GetString("user_id")

	var request struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.proposals.AddChat(c.Request.Context(), c.Param("sid"), userID, request.Content); err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"posted": c.Param("sid")})
}

// Vote godoc
// @Summary Vote on a proposal
// @Description Record the member's position; voting again replaces the previous vote
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Proposal sid"
// @Param request body object{position=string} true "aye, nay, or abstain"
// @Success 200 {object} envelope.Envelope
// @Failure 403 {object} envelope.Envelope
// @Router /api/proposal/{sid}/vote [post]
func (h *Handler) Vote(c *gin.Context) {
	userID := c.GetString("user_id")

	var request struct {
		Position string `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "position is required")
		return
	}

	if err := h.proposals.Vote(c.Request.Context(), c.Param("sid"), userID, request.Position); err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"voted": request.Position})
}

// Invite godoc
// @Summary Invite a user or workgroup to a proposal
// @Description A username invites one user; a workgroup name fans out to every member. Re-invites are no-ops.
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Proposal sid"
// @Param request body object{name=string} true "Username or workgroup name"
// @Success 200 {object} envelope.Envelope
// @Failure 400 {object} envelope.Envelope
// @Router /api/proposal/{sid}/invite [post]
func (h *Handler) Invite(c *gin.Context) {
	userID := c.GetString("user_id")

	var request struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		envelope.Error(c, http.StatusBadRequest, "name is required")
		return
	}

	added, err := h.proposals.Invite(c.Request.Context(), c.Param("sid"), userID, request.Name)
	if err != nil {
		envelope.Fail(c, err)
		return
	}
	envelope.OK(c, gin.H{"invited": request.Name, "added": added})
}
