package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"logOffAPI/services"
)

func TestGetGlobalLeaderboard_Unauthenticated(t *testing.T) {
	h := NewLeaderboardHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	rr := httptest.NewRecorder()

	h.GetGlobalLeaderboard(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetGlobalLeaderboard_MalformedLimit(t *testing.T) {
	h := NewLeaderboardHandler(nil)

	req := authedRequest(http.MethodGet, "/api/v1/leaderboard?limit=fifty", "")
	rr := httptest.NewRecorder()

	h.GetGlobalLeaderboard(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// An explicit out-of-range limit is rejected by the service, not clamped.
func TestGetGlobalLeaderboard_OutOfRangeLimit(t *testing.T) {
	h := NewLeaderboardHandler(services.NewLeaderboardService(nil, nil))

	for _, limit := range []string{"0", "101", "-1"} {
		req := authedRequest(http.MethodGet, "/api/v1/leaderboard?limit="+limit, "")
		rr := httptest.NewRecorder()

		h.GetGlobalLeaderboard(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", limit)
	}
}
