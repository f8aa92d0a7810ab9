package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"votemaster-backend/api"
	"votemaster-backend/cache"
	"votemaster-backend/database"
	"votemaster-backend/model"
	"votemaster-backend/mq"
	"votemaster-backend/repository"
	"votemaster-backend/routes"
	"votemaster-backend/service"
	"votemaster-backend/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	db, err := database.Open()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	if err := cache.InitRedis(); err != nil {
		log.Printf("warning: redis init failed: %v", err)
	}

	store := repository.NewGormStore(db)

	// Poll reads go through the cache tier when Redis is up; the plain store
	// handles everything when it is not.
	var polls repository.PollRepository = store
	if cache.IsAvailable() {
		bloom := cache.NewBloomFilter("poll_links", 5)
		// Re-seed from the database so links created while Redis was down
		// (or lost with its data) are not filtered out as unknown.
		if links, err := store.PollLinks(context.Background()); err != nil {
			log.Printf("warning: bloom warmup skipped, could not list links: %v", err)
		} else if err := bloom.Warm(context.Background(), links); err != nil {
			log.Printf("warning: bloom warmup failed: %v", err)
		}
		polls = repository.NewCachedPollRepository(
			store,
			cache.NewPollCache(),
			bloom,
		)
	}

	queue := mq.NewAdapter()
	queue.Initialize()

	hub := websocket.NewHub()
	go hub.Run()

	pollService := service.NewPollService(
		polls,
		store,
		store,
		cache.GetLockService(),
		cache.NewVoteGuard(),
		queue,
	)
	leaderService := service.NewLeaderService(store, polls)

	// Fan-out consumer: push the fresh real tallies to live dashboards. The
	// vote itself is already committed before the message exists.
	err = queue.RegisterHandler(func(msg mq.VoteMessage) error {
		tally, err := pollService.BuildLiveTally(context.Background(), msg.PollID)
		if err != nil {
			return err
		}
		hub.BroadcastToPoll(msg.PollID, &model.WebSocketMessage{
			Type:    "vote_update",
			PollID:  msg.PollID,
			Payload: tally,
		})
		return nil
	})
	if err != nil {
		log.Printf("warning: vote fan-out consumer not running: %v", err)
	}

	router := routes.SetupRouter(routes.Controllers{
		Polls:   api.NewPollController(pollService),
		Leaders: api.NewLeaderController(leaderService),
		Health:  api.NewHealthController(db, queue),
		WS:      websocket.NewHandler(hub),
	})

	srv := routes.StartServer(router)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	queue.Close()
	cache.CloseRedis()
	database.Close(db)

	log.Println("server stopped")
}
