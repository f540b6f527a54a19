package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashverma/pledge/internal/backup"
	"github.com/ashverma/pledge/internal/email"
	"github.com/ashverma/pledge/internal/handler"
	"github.com/ashverma/pledge/internal/middleware"
	"github.com/ashverma/pledge/internal/motivation"
	"github.com/ashverma/pledge/internal/push"
	"github.com/ashverma/pledge/internal/store"
	ws "github.com/ashverma/pledge/internal/websocket"
)

// Config holds the wiring knobs that come from the environment.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
	Backup          backup.Config
	Motivation      motivation.Config

	// Restart is called after a successful backup restore; main uses
	// it to shut down so the process comes back up on the restored
	// database file.
	Restart func()
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH        *handler.AuthHandler
	checkInH     *handler.CheckInHandler
	profileH     *handler.ProfileHandler
	partnershipH *handler.PartnershipHandler
	pushH        *handler.PushHandler
	motivationH  *handler.MotivationHandler
	backupH      *handler.BackupHandler

	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, cfg Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	checkInStore := store.NewCheckInStore(db)
	partnershipStore := store.NewPartnershipStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	// Events about a user are visible to the user and their accepted
	// partners, mirroring the HTTP-side access check.
	audience := func(userID int64) []int64 {
		ids := []int64{userID}
		user, err := userStore.GetByID(userID)
		if err != nil || user == nil {
			return ids
		}
		partners, err := partnershipStore.ListPartners(user.ID, user.Email)
		if err != nil {
			return ids
		}
		for _, p := range partners {
			ids = append(ids, p.ID)
		}
		return ids
	}
	hub := ws.NewHub(logger.With("component", "websocket"), audience)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	pushSched := push.NewScheduler(pushSvc, pushStore, checkInStore, logger.With("component", "push"))

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: ws.EntityBackup,
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	quoteSvc := motivation.NewService(cfg.Motivation)

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, emailClient, logger.With("component", "auth")),
		checkInH:      handler.NewCheckInHandler(checkInStore, userStore, partnershipStore, hub, pushSched, logger.With("component", "checkin")),
		profileH:      handler.NewProfileHandler(userStore, hub, logger.With("component", "profile")),
		partnershipH:  handler.NewPartnershipHandler(partnershipStore, userStore, emailClient, pushSched, hub, logger.With("component", "partnership")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		motivationH:   handler.NewMotivationHandler(quoteSvc),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, cfg.Restart, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the reminder scheduler.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.AuthKey, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Profile
	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile/settings", s.profileH.UpdateSettings)

	// Check-ins
	mux.HandleFunc("POST /api/checkins", s.checkInH.Create)
	mux.HandleFunc("GET /api/checkins", s.checkInH.List)

	// Partner-visible views, scoped by partnership access
	mux.HandleFunc("GET /api/users/{id}/checkins", s.checkInH.ListForUser)
	mux.HandleFunc("GET /api/users/{id}/stats", s.checkInH.Stats)
	mux.HandleFunc("GET /api/users/{id}/calendar", s.checkInH.Calendar)
	mux.HandleFunc("GET /api/users/{id}/weekly", s.checkInH.Weekly)

	// Partnerships
	mux.HandleFunc("POST /api/partnerships", s.partnershipH.Create)
	mux.HandleFunc("GET /api/partnerships/incoming", s.partnershipH.Incoming)
	mux.HandleFunc("GET /api/partnerships/outgoing", s.partnershipH.Outgoing)
	mux.HandleFunc("POST /api/partnerships/{id}/accept", s.partnershipH.Accept)
	mux.HandleFunc("GET /api/partners", s.partnershipH.Partners)

	// Motivation
	mux.HandleFunc("GET /api/motivation", s.motivationH.Quote)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDPublicKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
	mux.HandleFunc("PUT /api/push/preferences", s.pushH.SetPreference)
	mux.HandleFunc("POST /api/push/test", s.pushH.Test)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups", s.backupH.RunNow)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub))
}
