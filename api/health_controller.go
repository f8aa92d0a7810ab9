package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"votemaster-backend/mq"
)

var startTime = time.Now()

// HealthController exposes liveness, a detailed status view and the queue
// admin operations.
type HealthController struct {
	db    *gorm.DB
	queue *mq.Adapter
}

func NewHealthController(db *gorm.DB, queue *mq.Adapter) *HealthController {
	return &HealthController{db: db, queue: queue}
}

// RegisterRoutes mounts the health endpoints. Queue admin is key-gated.
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/health", c.HealthCheck)
	router.GET("/api/status", c.SystemStatus)

	admin := router.Group("/api/admin", AdminKeyRequired())
	{
		admin.GET("/queue/stats", c.QueueStats)
		admin.POST("/queue/retry-dead-letters", c.RetryDeadLetters)
	}
}

// HealthCheck is the load balancer probe.
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// SystemStatus reports uptime, runtime stats and database reachability.
func (c *HealthController) SystemStatus(ctx *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := c.db.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "error"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(startTime).String(),
		"go_version":    runtime.Version(),
		"num_goroutine": runtime.NumGoroutine(),
		"db_status":     dbStatus,
	})
}

// QueueStats reports the fan-out transport in use and its queue depths.
func (c *HealthController) QueueStats(ctx *gin.Context) {
	if c.queue == nil {
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "queue not configured"})
		return
	}
	ctx.JSON(http.StatusOK, c.queue.Stats())
}

// RetryDeadLetters requeues buried fan-out messages.
func (c *HealthController) RetryDeadLetters(ctx *gin.Context) {
	if c.queue == nil {
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "queue not configured"})
		return
	}
	if err := c.queue.RetryDeadLetters(); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "dead letters requeued"})
}
