package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"votemaster-backend/model"
	"votemaster-backend/service"
)

// PollController handles poll management for leaders and the public poll
// page for voters.
type PollController struct {
	polls *service.PollService
}

func NewPollController(polls *service.PollService) *PollController {
	return &PollController{polls: polls}
}

// RegisterRoutes mounts the poll endpoints. /api/polls is the leader
// surface; /api/p/:link is what a shared poll link resolves to.
func (c *PollController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		polls := api.Group("/polls")
		{
			polls.POST("", c.CreatePoll)
			polls.GET("", c.ListPolls)
			polls.GET("/:id", c.GetPoll)
			polls.PUT("/:id", c.UpdatePoll)
			polls.DELETE("/:id", c.DeletePoll)
			polls.GET("/:id/analytics", c.GetAnalytics)
		}

		public := api.Group("/p")
		{
			public.GET("/:link", c.ViewPoll)
			public.POST("/:link/vote", c.Vote)
		}
	}
}

type createPollRequest struct {
	LeaderID   string    `json:"leader_id" binding:"required"`
	Question   string    `json:"question" binding:"required"`
	Name       string    `json:"name"`
	InputType  string    `json:"input_type"`
	ResultMode string    `json:"result_mode"`
	Options    []string  `json:"options" binding:"required"`
	Displayed  []float64 `json:"displayed_results"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	ExpiryDate string    `json:"expiry_date"`
}

type updatePollRequest struct {
	Question   *string   `json:"question"`
	Status     *string   `json:"status"`
	StartDate  *string   `json:"start_date"`
	EndDate    *string   `json:"end_date"`
	ExpiryDate *string   `json:"expiry_date"`
	Displayed  []float64 `json:"displayed_results"`
}

type voteRequest struct {
	Option      string   `json:"option"`
	SliderValue *float64 `json:"slider_value"`
	Fingerprint string   `json:"fingerprint"`
}

// CreatePoll creates a poll with its options and displayed results.
func (c *PollController) CreatePoll(ctx *gin.Context) {
	var req createPollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	input := service.CreatePollInput{
		LeaderID:   req.LeaderID,
		Question:   req.Question,
		Name:       req.Name,
		InputType:  model.InputType(req.InputType),
		ResultMode: model.ResultMode(req.ResultMode),
		Options:    req.Options,
		Displayed:  req.Displayed,
	}

	var err error
	if input.StartDate, err = parseDate(req.StartDate); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start date"})
		return
	}
	if input.EndDate, err = parseDate(req.EndDate); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end date"})
		return
	}
	if input.ExpiryDate, err = parseDate(req.ExpiryDate); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expiry date"})
		return
	}

	poll, err := c.polls.CreatePoll(ctx, input)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, poll)
}

// GetPoll returns the owner's view with real tallies.
func (c *PollController) GetPoll(ctx *gin.Context) {
	poll, err := c.polls.GetPoll(ctx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, poll)
}

// ListPolls returns all polls owned by the leader in the leader_id query
// parameter.
func (c *PollController) ListPolls(ctx *gin.Context) {
	leaderID := ctx.Query("leader_id")
	if leaderID == "" {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "leader_id is required"})
		return
	}

	polls, err := c.polls.ListPollsByLeader(ctx, leaderID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, polls)
}

// UpdatePoll edits question, schedule, status or displayed results. The
// unique link cannot be changed.
func (c *PollController) UpdatePoll(ctx *gin.Context) {
	var req updatePollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	input := service.UpdatePollInput{
		Question:  req.Question,
		Displayed: req.Displayed,
	}
	if req.Status != nil {
		status := model.PollStatus(*req.Status)
		input.Status = &status
	}

	var err error
	if input.StartDate, err = parseDatePtr(req.StartDate); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start date"})
		return
	}
	if input.EndDate, err = parseDatePtr(req.EndDate); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end date"})
		return
	}
	if input.ExpiryDate, err = parseDatePtr(req.ExpiryDate); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expiry date"})
		return
	}

	poll, err := c.polls.UpdatePoll(ctx, ctx.Param("id"), input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, poll)
}

// DeletePoll removes the poll and its history.
func (c *PollController) DeletePoll(ctx *gin.Context) {
	if err := c.polls.DeletePoll(ctx, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "poll deleted"})
}

// GetAnalytics returns the real-vote analytics for the owner's dashboard.
func (c *PollController) GetAnalytics(ctx *gin.Context) {
	analytics, err := c.polls.GetAnalytics(ctx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, analytics)
}

// ViewPoll serves the public poll page for a shared link. Each request
// counts as a view.
func (c *PollController) ViewPoll(ctx *gin.Context) {
	session := voterSession(ctx, "")

	view, err := c.polls.ViewPoll(ctx, ctx.Param("link"), session)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// Vote casts a ballot on a public poll link.
func (c *PollController) Vote(ctx *gin.Context) {
	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	session := voterSession(ctx, req.Fingerprint)

	view, err := c.polls.SubmitVote(ctx, ctx.Param("link"), service.VoteInput{
		OptionKey:   req.Option,
		SliderValue: req.SliderValue,
	}, session)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// voterSession resolves the voter identity: an explicit fingerprint from the
// body, the X-Voter-Fingerprint header, or one derived from request
// attributes as a last resort.
func voterSession(ctx *gin.Context, bodyFingerprint string) service.VoterSession {
	fp := bodyFingerprint
	if fp == "" {
		fp = ctx.GetHeader("X-Voter-Fingerprint")
	}
	if fp == "" {
		fp = service.Fingerprint(
			ctx.Request.UserAgent(),
			ctx.GetHeader("Accept-Language"),
			ctx.ClientIP(),
		)
	}
	return service.VoterSession{Fingerprint: fp}
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDatePtr(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	return parseDate(*value)
}
