package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votemaster-backend/model"
)

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": "test-key"}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	leader := env.seedLeader(t)

	w := env.request(t, http.MethodPost, "/api/auth/login", gin.H{
		"mobile":   leader.Mobile,
		"password": "secret1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.Leader
	decodeBody(t, w, &got)
	assert.Equal(t, leader.ID, got.ID)
	// the hash must never leak through the JSON surface
	assert.NotContains(t, w.Body.String(), "password")

	w = env.request(t, http.MethodPost, "/api/auth/login", gin.H{
		"mobile":   leader.Mobile,
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/login", gin.H{"mobile": leader.Mobile}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminGate(t *testing.T) {
	t.Setenv("ADMIN_KEY", "test-key")
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/leaders", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/leaders", nil, map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/leaders", nil, adminHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLeaderCRUDEndpoints(t *testing.T) {
	t.Setenv("ADMIN_KEY", "test-key")
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/leaders", gin.H{
		"name":     "Ram Chate",
		"mobile":   "9876543210",
		"password": "secret1",
	}, adminHeaders())
	require.Equal(t, http.StatusCreated, w.Code)

	var leader model.Leader
	decodeBody(t, w, &leader)
	assert.Equal(t, model.RoleLeader, leader.Role)

	t.Run("duplicate mobile conflicts", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/leaders", gin.H{
			"name":     "Copycat",
			"mobile":   "9876543210",
			"password": "secret2",
		}, adminHeaders())
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/leaders", gin.H{
			"name":     "Shorty",
			"mobile":   "1111111111",
			"password": "123",
		}, adminHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/leaders/"+leader.ID, nil, adminHeaders())
		assert.Equal(t, http.StatusOK, w.Code)

		w = env.request(t, http.MethodGet, "/api/leaders/missing", nil, adminHeaders())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/api/leaders/"+leader.ID, gin.H{
			"name": "New Name",
		}, adminHeaders())
		require.Equal(t, http.StatusOK, w.Code)

		var got model.Leader
		decodeBody(t, w, &got)
		assert.Equal(t, "New Name", got.Name)
		assert.Contains(t, got.Slug, "new-name-")
	})

	t.Run("delete", func(t *testing.T) {
		w := env.request(t, http.MethodDelete, "/api/leaders/"+leader.ID, nil, adminHeaders())
		require.Equal(t, http.StatusOK, w.Code)

		w = env.request(t, http.MethodGet, "/api/leaders/"+leader.ID, nil, adminHeaders())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
