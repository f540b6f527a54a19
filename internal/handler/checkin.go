package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashverma/pledge/internal/auth"
	"github.com/ashverma/pledge/internal/model"
	"github.com/ashverma/pledge/internal/push"
	"github.com/ashverma/pledge/internal/stats"
	"github.com/ashverma/pledge/internal/store"
	"github.com/ashverma/pledge/internal/streak"
	"github.com/ashverma/pledge/internal/websocket"
)

type CheckInHandler struct {
	checkins     *store.CheckInStore
	users        *store.UserStore
	partnerships *store.PartnershipStore
	hub          *websocket.Hub
	scheduler    *push.Scheduler
	logger       *slog.Logger
}

func NewCheckInHandler(
	cs *store.CheckInStore,
	us *store.UserStore,
	ps *store.PartnershipStore,
	hub *websocket.Hub,
	scheduler *push.Scheduler,
	logger *slog.Logger,
) *CheckInHandler {
	return &CheckInHandler{
		checkins:     cs,
		users:        us,
		partnerships: ps,
		hub:          hub,
		scheduler:    scheduler,
		logger:       logger,
	}
}

func (h *CheckInHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type checkInRequest struct {
	Status model.CheckInStatus `json:"status"`
	Note   string              `json:"note"`
	Mood   string              `json:"mood"`
}

type checkInResponse struct {
	Log     *model.CheckInLog `json:"log"`
	Profile *model.User       `json:"profile"`
}

// Create records today's check-in: it runs the streak engine against the
// caller's profile and persists the log and the updated streak together.
func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be SUCCESS or RELAPSE")
		return
	}
	req.Mood = strings.TrimSpace(req.Mood)
	if !model.ValidMood(req.Mood) {
		writeError(w, http.StatusBadRequest, "unknown mood")
		return
	}

	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	now := time.Now()
	updated := streak.Apply(*user, req.Status, now, now)

	created, err := h.checkins.Append(model.CheckInLog{
		UserID: user.ID,
		Date:   now,
		Status: req.Status,
		Note:   strings.TrimSpace(req.Note),
		Mood:   req.Mood,
	}, updated)
	if err != nil {
		h.logger.Error("append check-in", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record check-in")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityLog, "created", user.ID, created.ID))
	h.broadcast(websocket.NewMessage(websocket.EntityProfile, "updated", user.ID, ""))

	if h.scheduler != nil {
		go h.notifyPartners(updated, req.Status)
	}

	writeJSON(w, http.StatusCreated, checkInResponse{Log: created, Profile: &updated})
}

func (h *CheckInHandler) notifyPartners(user model.User, status model.CheckInStatus) {
	partners, err := h.partnerships.ListPartners(user.ID, user.Email)
	if err != nil {
		h.logger.Error("list partners for notify", "user_id", user.ID, "error", err)
		return
	}
	ids := make([]int64, 0, len(partners))
	for _, p := range partners {
		ids = append(ids, p.ID)
	}
	h.scheduler.NotifyPartnerCheckIn(ids, user.Name, status)
}

// List returns the caller's own logs, most recent first.
func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, auth.UserID(r.Context()))
}

// ListForUser returns another user's logs, guarded by partner access.
func (h *CheckInHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.authorizeView(w, r)
	if !ok {
		return
	}
	h.listFor(w, r, ownerID)
}

func (h *CheckInHandler) listFor(w http.ResponseWriter, r *http.Request, userID int64) {
	logs, err := h.checkins.ListByUser(userID)
	if err != nil {
		h.logger.Error("list check-ins", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list check-ins")
		return
	}
	if logs == nil {
		logs = []model.CheckInLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

type statsResponse struct {
	Summary       stats.Summary `json:"summary"`
	CurrentStreak int           `json:"current_streak"`
	BestStreak    int           `json:"best_streak"`
	DaysRemaining int           `json:"days_remaining"`
	PledgeGoal    int           `json:"pledge_goal"`
}

// Stats returns the derived dashboard numbers for a user.
func (h *CheckInHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.authorizeView(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(ownerID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	logs, err := h.checkins.ListByUser(ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load check-ins")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Summary:       stats.Summarize(logs),
		CurrentStreak: user.CurrentStreak,
		BestStreak:    user.BestStreak,
		DaysRemaining: stats.DaysRemaining(user.JourneyStart, user.Goal(), time.Now()),
		PledgeGoal:    user.Goal(),
	})
}

// Calendar returns the full pledge timeline grid for a user. Before the
// first check-in there is no journey start, so the grid is empty.
func (h *CheckInHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.authorizeView(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(ownerID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.JourneyStart == nil {
		writeJSON(w, http.StatusOK, []stats.Day{})
		return
	}

	logs, err := h.checkins.ListByUser(ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load check-ins")
		return
	}

	writeJSON(w, http.StatusOK, stats.Calendar(logs, *user.JourneyStart, user.Goal(), time.Now()))
}

// Weekly returns the 7-day consistency series for a user.
func (h *CheckInHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.authorizeView(w, r)
	if !ok {
		return
	}

	now := time.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -6)
	logs, err := h.checkins.ListByUserSince(ownerID, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load check-ins")
		return
	}

	writeJSON(w, http.StatusOK, stats.Weekly(logs, now))
}

// authorizeView resolves the {id} path parameter and checks the caller may
// view that user's data. Self access always passes; otherwise an accepted
// partnership in either direction is required.
func (h *CheckInHandler) authorizeView(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ownerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}

	viewer, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || viewer == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}

	allowed, err := h.partnerships.HasAccess(*viewer, ownerID)
	if err != nil {
		h.logger.Error("check partner access", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return 0, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "not a partner of this user")
		return 0, false
	}
	return ownerID, true
}
