package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashverma/pledge/internal/auth"
	"github.com/ashverma/pledge/internal/store"
	"github.com/ashverma/pledge/internal/websocket"
)

type ProfileHandler struct {
	users  *store.UserStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewProfileHandler(us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: us, hub: hub, logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	// Journey start self-heals on first load and is never reset.
	if user.JourneyStart == nil {
		user, err = h.users.SetJourneyStart(user.ID, time.Now())
		if err != nil || user == nil {
			writeError(w, http.StatusInternalServerError, "failed to load profile")
			return
		}
	}

	writeJSON(w, http.StatusOK, user)
}

type settingsRequest struct {
	Name       string `json:"name"`
	PledgeGoal int    `json:"pledge_goal"`
}

// UpdateSettings changes the display name and pledge goal. Streak fields
// are owned by the check-in path and cannot be written here.
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PledgeGoal <= 0 {
		writeError(w, http.StatusBadRequest, "pledge goal must be positive")
		return
	}

	userID := auth.UserID(r.Context())
	user, err := h.users.UpdateSettings(userID, req.Name, req.PledgeGoal)
	if err != nil {
		h.logger.Error("update settings", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityProfile, "updated", userID, ""))
	}

	writeJSON(w, http.StatusOK, user)
}
