package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/logging"
	"github.com/dmitrijs2005/cipherdrive/internal/server/services"
)

type HTTPServer struct {
	address   string
	logger    logging.Logger
	jwtSecret []byte

	auth  *AuthHandler
	keys  *KeysHandler
	files *FilesHandler
}

func NewHTTPServer(address string, l logging.Logger, secretKey string,
	users *services.UserService, keys *services.KeyService,
	nodes *services.NodeService, transfer *services.TransferService,
	shares *services.ShareService) *HTTPServer {
	return &HTTPServer{
		address:   address,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
		auth:      NewAuthHandler(users),
		keys:      NewKeysHandler(keys),
		files:     NewFilesHandler(nodes, transfer, shares),
	}
}

// Routes builds the full route table. Exposed separately so tests can
// drive the mux without binding a socket.
func (s *HTTPServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/auth/register", s.auth.Register)
	mux.HandleFunc("POST /api/auth/login", s.auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", s.auth.Refresh)
	mux.Handle("GET /api/auth/me", s.protected(s.auth.Me))

	mux.Handle("PUT /api/keys", s.protected(s.keys.Publish))
	mux.Handle("GET /api/keys/own", s.protected(s.keys.Own))
	mux.Handle("GET /api/keys/{uid}", s.protected(s.keys.Public))
	mux.Handle("GET /api/users/lookup", s.protected(s.keys.LookupByEmail))

	mux.Handle("GET /api/files", s.protected(s.files.List))
	mux.Handle("POST /api/files/upload", s.protected(s.files.Upload))
	mux.Handle("POST /api/folders", s.protected(s.files.CreateFolder))
	mux.Handle("GET /api/folders/children", s.protected(s.files.Children))
	mux.Handle("GET /api/files/{id}", s.protected(s.files.Get))
	mux.Handle("PATCH /api/files/{id}/name", s.protected(s.files.Rename))
	mux.Handle("DELETE /api/files/{id}", s.protected(s.files.Delete))
	mux.Handle("GET /api/files/{id}/download", s.protected(s.files.Download))
	mux.Handle("GET /api/files/{id}/raw", s.protected(s.files.Raw))
	mux.Handle("POST /api/files/{id}/share", s.protected(s.files.Share))

	return mux
}

func (s *HTTPServer) protected(h http.HandlerFunc) http.Handler {
	return requireAuth(s.jwtSecret, h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
