package routes

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"votemaster-backend/api"
	"votemaster-backend/websocket"
)

// Server wraps http.Server so main can drive graceful shutdown.
type Server struct {
	*http.Server
}

// Controllers bundles everything the router mounts.
type Controllers struct {
	Polls   *api.PollController
	Leaders *api.LeaderController
	Health  *api.HealthController
	WS      *websocket.Handler
}

// SetupRouter configures gin with CORS, rate limiting and all endpoints.
func SetupRouter(c Controllers) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		// TODO: restrict to the frontend domain for production
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Voter-Fingerprint"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(api.RateLimitMiddleware())

	c.Polls.RegisterRoutes(router)
	c.Leaders.RegisterRoutes(router)
	c.Health.RegisterRoutes(router)
	c.WS.RegisterRoutes(router)

	return router
}

// StartServer listens on SERVER_PORT (default 8090) in a goroutine and
// returns the server handle for shutdown.
func StartServer(router *gin.Engine) *Server {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8090"
	}

	srv := &Server{
		&http.Server{
			Addr:    ":" + port,
			Handler: router,
		},
	}

	go func() {
		log.Printf("server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	return srv
}
