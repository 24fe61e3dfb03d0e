package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logOffAPI/middleware"
)

// The validation paths below never reach the service, so a nil service is
// fine and no database is needed.

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test123")
	return req.WithContext(ctx)
}

func TestCreateChallenge_Unauthenticated(t *testing.T) {
	h := NewChallengeHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/challenges", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	h.CreateChallenge(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "not authenticated")
}

func TestCreateChallenge_InvalidBody(t *testing.T) {
	h := NewChallengeHandler(nil)

	req := authedRequest(http.MethodPost, "/api/v1/challenges", `{"name": `)
	rr := httptest.NewRecorder()

	h.CreateChallenge(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListChallenges_Unauthenticated(t *testing.T) {
	h := NewChallengeHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenges", nil)
	rr := httptest.NewRecorder()

	h.ListChallenges(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetChallenge_InvalidID(t *testing.T) {
	h := NewChallengeHandler(nil)

	for _, id := range []string{"abc", "0", "-4"} {
		req := authedRequest(http.MethodGet, "/api/v1/challenges/"+id, "")
		req = mux.SetURLVars(req, map[string]string{"id": id})
		rr := httptest.NewRecorder()

		h.GetChallenge(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "id=%s", id)
	}
}

func TestInviteUsers_EmptyUserIDs(t *testing.T) {
	h := NewChallengeHandler(nil)

	req := authedRequest(http.MethodPost, "/api/v1/challenges/7/invite", `{"user_ids": []}`)
	req = mux.SetURLVars(req, map[string]string{"id": "7"})
	rr := httptest.NewRecorder()

	h.InviteUsers(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "user_ids")
}

func TestRespondToInvitation_InvalidBody(t *testing.T) {
	h := NewChallengeHandler(nil)

	req := authedRequest(http.MethodPost, "/api/v1/invitations/3", `accept`)
	req = mux.SetURLVars(req, map[string]string{"id": "3"})
	rr := httptest.NewRecorder()

	h.RespondToInvitation(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
