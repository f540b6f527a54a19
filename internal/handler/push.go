package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashverma/pledge/internal/auth"
	"github.com/ashverma/pledge/internal/model"
	"github.com/ashverma/pledge/internal/push"
	"github.com/ashverma/pledge/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

// VAPIDPublicKey exposes the key the browser needs to subscribe.
func (h *PushHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		writeError(w, http.StatusNotFound, "push notifications not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dhKey  string `json:"p256dh_key"`
	AuthKey    string `json:"auth_key"`
	DeviceName string `json:"device_name"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh_key and auth_key are required")
		return
	}

	userID := auth.UserID(r.Context())
	sub, err := h.pushStore.CreateSubscription(userID, req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.pushStore.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}

	if err := h.pushStore.DeleteSubscription(id, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PushHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.pushStore.GetPreferences(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	if prefs == nil {
		prefs = []model.NotificationPreference{}
	}
	writeJSON(w, http.StatusOK, prefs)
}

type preferenceRequest struct {
	NotificationType string `json:"notification_type"`
	Enabled          bool   `json:"enabled"`
}

func (h *PushHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	switch req.NotificationType {
	case model.NotifTypeCheckInReminder, model.NotifTypePartnerRequest, model.NotifTypePartnerCheckIn:
	default:
		writeError(w, http.StatusBadRequest, "unknown notification type")
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.pushStore.SetPreference(userID, req.NotificationType, req.Enabled); err != nil {
		h.logger.Error("set notification preference", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save preference")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Test sends a notification to all of the caller's devices so they can
// confirm the subscription works.
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		writeError(w, http.StatusNotFound, "push notifications not configured")
		return
	}

	userID := auth.UserID(r.Context())
	subs, err := h.pushStore.ListByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if len(subs) == 0 {
		writeError(w, http.StatusBadRequest, "no subscriptions registered")
		return
	}

	payload := push.Payload{
		Title: "Test Notification",
		Body:  "Push notifications are working.",
		Tag:   "test",
	}
	sent := 0
	for _, sub := range subs {
		if err := h.service.Send(&sub, payload); err != nil {
			h.logger.Warn("send test notification", "user_id", userID, "error", err)
			continue
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
