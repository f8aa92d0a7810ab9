package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"votemaster-backend/database"
	"votemaster-backend/model"
	"votemaster-backend/repository"
	"votemaster-backend/service"
)

// testEnv is a router backed by an in-memory database, with direct service
// handles for seeding fixtures.
type testEnv struct {
	router  *gin.Engine
	polls   *service.PollService
	leaders *service.LeaderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	store := repository.NewGormStore(db)
	polls := service.NewPollService(store, store, store, nil, nil, nil)
	leaders := service.NewLeaderService(store, store)

	router := gin.New()
	NewPollController(polls).RegisterRoutes(router)
	NewLeaderController(leaders).RegisterRoutes(router)

	return &testEnv{router: router, polls: polls, leaders: leaders}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
}

func (e *testEnv) seedLeader(t *testing.T) *model.Leader {
	t.Helper()

	leader, err := e.leaders.CreateLeader(context.Background(), service.CreateLeaderInput{
		Name:     "Ram Chate",
		Mobile:   uuid.New().String()[:10],
		Password: "secret1",
	})
	require.NoError(t, err)
	return leader
}

func (e *testEnv) seedPoll(t *testing.T, leaderID string) *model.Poll {
	t.Helper()

	poll, err := e.polls.CreatePoll(context.Background(), service.CreatePollInput{
		LeaderID:  leaderID,
		Question:  "Best option?",
		Options:   []string{"A", "B"},
		Displayed: []float64{60, 40},
	})
	require.NoError(t, err)
	return poll
}
