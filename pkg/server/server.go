package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fleetgauge/fleetgauge/pkg/common"
	"github.com/fleetgauge/fleetgauge/pkg/fleet"
	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/storage"
	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/fleetgauge/fleetgauge/web"
	"github.com/levenlabs/go-lflag"
)

const authTokenCookie = "auth_token"

type contextKey string

const userContextKey contextKey = "user"

// tokenVerifier is a function that validates a Google or Apple ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API for the fleetgauge dashboard. It serves
// the in-memory fleet report, reads and writes settings through
// storage, and re-runs the analyzer on demand.
type Server struct {
	storage  storage.Database
	analyzer *fleet.Analyzer

	listenAddr string
	devProxy   string
	httpServer *http.Server

	adminEmails      []string
	oidcAudiences    map[string]string
	oidcVerifiers    map[string]tokenVerifier
	bypassAuth       bool
	serverName       string
	webCacheDuration time.Duration

	// mu guards the served report. It is replaced wholesale on refresh
	// and treated as immutable while served.
	mu        sync.RWMutex
	report    types.FleetReport
	hasReport bool
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(st storage.Database, an *fleet.Analyzer) *Server {
	srv := &Server{
		storage:    st,
		analyzer:   an,
		serverName: "fleetgauge",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	devProxy := lflag.String("dev-proxy", "", "Address of the dev server (e.g. http://localhost:5173)")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to update settings and trigger refreshes")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID")
	webCacheDuration := lflag.Duration("web-cache-duration", 0, "Duration to cache web files (e.g. 1h, 5m). 0 means no cache.")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.devProxy = *devProxy
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if len(oidcAudiences) > 0 {
			// oidc discovery goes out through our client so the requests
			// carry the fleetgauge user-agent
			occtx := oidc.ClientContext(context.Background(), common.HTTPClient(time.Minute))
			srv.oidcAudiences = make(map[string]string, len(oidcAudiences))
			srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
			for n, a := range oidcAudiences {
				switch n {
				case "google":
					provider, err := oidc.NewProvider(occtx, "https://accounts.google.com")
					if err != nil {
						log.Ctx(occtx).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
						os.Exit(1)
					}
					srv.oidcVerifiers[n] = provider.Verifier(&oidc.Config{ClientID: a}).Verify
					srv.oidcAudiences[n] = a
				case "apple":
					provider, err := oidc.NewProvider(occtx, "https://appleid.apple.com")
					if err != nil {
						log.Ctx(occtx).Error("failed to initialize Apple OIDC provider", slog.Any("error", err))
						os.Exit(1)
					}
					srv.oidcVerifiers[n] = provider.Verifier(&oidc.Config{ClientID: a}).Verify
					srv.oidcAudiences[n] = a
				default:
					log.Ctx(occtx).Error("unsupported oidc audience client", slog.String("client", n))
					os.Exit(1)
				}
			}
		} else {
			// single-operator deployments without OIDC get an open dashboard
			srv.bypassAuth = true
			log.Ctx(context.Background()).Warn("no oidc audiences configured, dashboard authentication is disabled")
		}
		srv.webCacheDuration = *webCacheDuration
	})

	return srv
}

// SetReport replaces the served fleet report. The report is treated as
// immutable once handed over.
func (s *Server) SetReport(r types.FleetReport) {
	s.mu.Lock()
	s.report = r
	s.hasReport = true
	s.mu.Unlock()
}

// currentReport returns the served report. The second return is false
// until SetReport has been called once.
func (s *Server) currentReport() (types.FleetReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.hasReport
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/fleet", s.handleFleet)
	apiMux.HandleFunc("GET /api/batteries", s.handleListBatteries)
	apiMux.HandleFunc("GET /api/batteries/{id}/availability", s.handleBatteryAvailability)
	apiMux.HandleFunc("GET /api/availability/combined", s.handleCombinedAvailability)
	apiMux.HandleFunc("GET /api/availability/heatmap", s.handleHeatmap)
	apiMux.HandleFunc("GET /api/soe/distribution", s.handleSOEDistribution)
	apiMux.HandleFunc("GET /api/soe/boxes", s.handleSOEBoxes)
	apiMux.HandleFunc("GET /api/history/reports", s.handleHistoryReports)
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	apiMux.HandleFunc("POST /api/refresh", s.handleRefresh)
	apiMux.HandleFunc("GET /api/auth/status", s.handleAuthStatus)
	apiMux.HandleFunc("POST /api/auth/login", s.handleLogin)
	apiMux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))

	// serve the web frontend, either from the embedded filesystem or from the dev server
	if s.devProxy != "" {
		u, err := url.Parse(s.devProxy)
		if err != nil {
			panic(fmt.Errorf("invalid dev-proxy url (%s): %w", s.devProxy, err))
		}
		mux.Handle("/", httputil.NewSingleHostReverseProxy(u))
	} else {
		distFS, err := fs.Sub(web.DistFS, "dist")
		if err != nil {
			panic(fmt.Errorf("failed to get web dist fs: %w", err))
		}
		fileServer := http.FileServer(http.FS(distFS))
		mux.Handle("/", s.webHandler(distFS, fileServer))
	}
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// user is the authenticated dashboard user resolved by authMiddleware.
type user struct {
	ID    string
	Email string
	Admin bool
}

func (s *Server) getUser(r *http.Request) user {
	if u, ok := r.Context().Value(userContextKey).(user); ok {
		return u
	}
	return user{}
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capture server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Validate(); err != nil {
		log.Ctx(r.Context()).ErrorContext(r.Context(), "storage validation failed", slog.Any("error", err))
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) webHandler(dir fs.FS, h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Default to serving index.html for unknown paths (SPA)
		if r.URL.Path != "/" {
			// Check if the file exists in the filesystem
			f, err := dir.Open(strings.TrimPrefix(r.URL.Path, "/"))
			if err == nil {
				f.Close()
			} else if errors.Is(err, fs.ErrNotExist) {
				// Don't fallback to index.html for .well-known
				if strings.HasPrefix(r.URL.Path, "/.well-known/") {
					// we don't write JSON here because we don't know what file type is expected
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				// If file doesn't exist, serve index.html
				r.URL.Path = "/"
			} else {
				log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to open file", "error", err)
				// we don't write JSON here because we don't know what file type is expected
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}
		// cache SPA files if duration is set
		if s.webCacheDuration > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.webCacheDuration.Seconds())))
		}

		h.ServeHTTP(w, r)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Strict-Transport-Security: max-age=2 years
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")

		// Prevent MIME-sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
