package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/ashverma/pledge/internal/auth"
	"github.com/ashverma/pledge/internal/database"
	"github.com/ashverma/pledge/internal/store"
)

type handlerFixture struct {
	db           *sql.DB
	users        *store.UserStore
	sessions     *store.SessionStore
	checkins     *store.CheckInStore
	partnerships *store.PartnershipStore
	push         *store.PushStore
	logger       *slog.Logger
}

func setupHandlerTest(t *testing.T) *handlerFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &handlerFixture{
		db:           db,
		users:        store.NewUserStore(db),
		sessions:     store.NewSessionStore(db),
		checkins:     store.NewCheckInStore(db),
		partnerships: store.NewPartnershipStore(db),
		push:         store.NewPushStore(db),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// asUser attaches an authenticated context to the request, standing in
// for the session middleware.
func asUser(r *http.Request, userID int64) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID, SessionID: "test-session"})
	return r.WithContext(ctx)
}
