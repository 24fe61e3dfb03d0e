package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"logOffAPI/internal/types/screentime"
	"logOffAPI/middleware"
	"logOffAPI/services"
)

type ScreenTimeHandler struct {
	screenTimeService *services.ScreenTimeService
}

func NewScreenTimeHandler(screenTimeService *services.ScreenTimeService) *ScreenTimeHandler {
	return &ScreenTimeHandler{
		screenTimeService: screenTimeService,
	}
}

// LogScreenTime writes one (app, date) log row and fans recomputes out to
// the user's matching active challenges.
func (h *ScreenTimeHandler) LogScreenTime(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req screentime.LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.screenTimeService.LogScreenTime(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

func (h *ScreenTimeHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'year' parameter")
			return
		}
		year = parsed
	}
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'month' parameter")
			return
		}
		month = parsed
	}

	cal, err := h.screenTimeService.Calendar(ctx, clerkID, year, month)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cal)
}

func (h *ScreenTimeHandler) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	usage, err := h.screenTimeService.UsageStats(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, usage)
}
