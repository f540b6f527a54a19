package handler

import (
	"net/http"
	"time"

	"github.com/ashverma/pledge/internal/motivation"
)

type MotivationHandler struct {
	quotes *motivation.Service
}

func NewMotivationHandler(svc *motivation.Service) *MotivationHandler {
	return &MotivationHandler{quotes: svc}
}

// Quote returns today's motivational quote. An optional mood query
// parameter tunes the message.
func (h *MotivationHandler) Quote(w http.ResponseWriter, r *http.Request) {
	mood := r.URL.Query().Get("mood")
	writeJSON(w, http.StatusOK, h.quotes.Get(time.Now(), mood))
}
