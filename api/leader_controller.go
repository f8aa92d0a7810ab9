package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"votemaster-backend/service"
)

// LeaderController handles login and the admin-only account management
// surface.
type LeaderController struct {
	leaders *service.LeaderService
}

func NewLeaderController(leaders *service.LeaderService) *LeaderController {
	return &LeaderController{leaders: leaders}
}

// RegisterRoutes mounts login and the admin-gated CRUD endpoints.
func (c *LeaderController) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/auth/login", c.Login)

	admin := router.Group("/api/leaders", AdminKeyRequired())
	{
		admin.POST("", c.CreateLeader)
		admin.GET("", c.ListLeaders)
		admin.GET("/:id", c.GetLeader)
		admin.PUT("/:id", c.UpdateLeader)
		admin.DELETE("/:id", c.DeleteLeader)
	}
}

// AdminKeyRequired gates a route group on the X-Admin-Key header matching
// the ADMIN_KEY environment variable.
func AdminKeyRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := os.Getenv("ADMIN_KEY")
		if key == "" {
			key = "admin123"
		}
		if ctx.GetHeader("X-Admin-Key") != key {
			ctx.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin access required"})
			return
		}
		ctx.Next()
	}
}

type loginRequest struct {
	Mobile   string `json:"mobile" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type leaderRequest struct {
	Name     string `json:"name" binding:"required"`
	Mobile   string `json:"mobile" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

type updateLeaderRequest struct {
	Name     *string `json:"name"`
	Mobile   *string `json:"mobile"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
}

// Login checks credentials and returns the account. Clients keep the leader
// ID for subsequent requests; there is no server-side session.
func (c *LeaderController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "mobile and password are required"})
		return
	}

	leader, err := c.leaders.Authenticate(ctx, req.Mobile, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, leader)
}

// CreateLeader provisions a leader account.
func (c *LeaderController) CreateLeader(ctx *gin.Context) {
	var req leaderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	leader, err := c.leaders.CreateLeader(ctx, service.CreateLeaderInput{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, leader)
}

// ListLeaders returns all leader accounts.
func (c *LeaderController) ListLeaders(ctx *gin.Context) {
	leaders, err := c.leaders.ListLeaders(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, leaders)
}

// GetLeader returns one account.
func (c *LeaderController) GetLeader(ctx *gin.Context) {
	leader, err := c.leaders.GetLeader(ctx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, leader)
}

// UpdateLeader edits an account.
func (c *LeaderController) UpdateLeader(ctx *gin.Context) {
	var req updateLeaderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	leader, err := c.leaders.UpdateLeader(ctx, ctx.Param("id"), service.UpdateLeaderInput{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, leader)
}

// DeleteLeader removes the account and all polls it owns.
func (c *LeaderController) DeleteLeader(ctx *gin.Context) {
	if err := c.leaders.DeleteLeader(ctx, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "leader deleted"})
}
