package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ashverma/pledge/internal/auth"
	"github.com/ashverma/pledge/internal/email"
	"github.com/ashverma/pledge/internal/model"
	"github.com/ashverma/pledge/internal/push"
	"github.com/ashverma/pledge/internal/store"
	"github.com/ashverma/pledge/internal/websocket"
)

type PartnershipHandler struct {
	partnerships *store.PartnershipStore
	users        *store.UserStore
	emailClient  *email.Client
	scheduler    *push.Scheduler
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewPartnershipHandler(
	ps *store.PartnershipStore,
	us *store.UserStore,
	ec *email.Client,
	scheduler *push.Scheduler,
	hub *websocket.Hub,
	logger *slog.Logger,
) *PartnershipHandler {
	return &PartnershipHandler{
		partnerships: ps,
		users:        us,
		emailClient:  ec,
		scheduler:    scheduler,
		hub:          hub,
		logger:       logger,
	}
}

func (h *PartnershipHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type partnerRequestBody struct {
	Email string `json:"email"`
}

// Create sends a partner request to an email address. The receiver does
// not need an account yet; the request is matched by email on their side.
func (h *PartnershipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req partnerRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	me, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || me == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if req.Email == me.Email {
		writeError(w, http.StatusBadRequest, "you cannot partner with yourself")
		return
	}

	p, err := h.partnerships.Create(me.ID, req.Email)
	if err != nil {
		h.logger.Error("create partnership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create request")
		return
	}

	go h.notifyReceiver(*me, req.Email)

	writeJSON(w, http.StatusCreated, p)
}

func (h *PartnershipHandler) notifyReceiver(requester model.User, receiverEmail string) {
	if h.emailClient.Configured() {
		if err := h.emailClient.SendPartnerInvite(receiverEmail, requester.Name); err != nil {
			h.logger.Error("send partner invite email", "error", err)
		}
	}

	receiver, err := h.users.GetByEmail(receiverEmail)
	if err != nil || receiver == nil {
		return
	}
	if h.scheduler != nil {
		h.scheduler.NotifyPartnerRequest(receiver.ID, requester.Name)
	}
	h.broadcast(websocket.NewMessage(websocket.EntityPartnership, "created", receiver.ID, ""))
}

// Incoming lists pending requests addressed to the caller's email.
func (h *PartnershipHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	me, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || me == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	reqs, err := h.partnerships.ListIncoming(me.Email)
	if err != nil {
		h.logger.Error("list incoming requests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if reqs == nil {
		reqs = []model.PartnershipRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// Outgoing lists pending requests the caller has sent.
func (h *PartnershipHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	out, err := h.partnerships.ListOutgoing(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list outgoing requests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if out == nil {
		out = []model.Partnership{}
	}
	writeJSON(w, http.StatusOK, out)
}

// Accept confirms a pending request addressed to the caller.
func (h *PartnershipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	me, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || me == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	p, err := h.partnerships.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load request")
		return
	}
	if p == nil || p.ReceiverEmail != me.Email {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if p.Status != model.PartnershipPending {
		writeError(w, http.StatusConflict, "request already accepted")
		return
	}

	accepted, err := h.partnerships.Accept(id)
	if err != nil {
		h.logger.Error("accept partnership", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept request")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityPartnership, "accepted", p.RequesterID, ""))
	h.broadcast(websocket.NewMessage(websocket.EntityPartnership, "accepted", me.ID, ""))

	writeJSON(w, http.StatusOK, accepted)
}

// Partners lists the caller's accepted partners as profiles.
func (h *PartnershipHandler) Partners(w http.ResponseWriter, r *http.Request) {
	me, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || me == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	partners, err := h.partnerships.ListPartners(me.ID, me.Email)
	if err != nil {
		h.logger.Error("list partners", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list partners")
		return
	}
	if partners == nil {
		partners = []model.User{}
	}
	writeJSON(w, http.StatusOK, partners)
}
