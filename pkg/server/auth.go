package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/log"
)

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.bypassAuth {
			ctx = context.WithValue(ctx, userContextKey, user{Admin: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		allowNoLogin := r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/auth/status"

		var u user
		authCookie, err := r.Cookie(authTokenCookie)
		if err != nil && !errors.Is(err, http.ErrNoCookie) {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get auth cookie", slog.Any("error", err))
			writeJSONError(w, "missing auth cookie", http.StatusBadRequest)
			return
		}
		if authCookie != nil {
			email, subject, _, err := s.authenticateToken(ctx, authCookie.Value)
			if err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "auth token validation failed", slog.Any("error", err))
				writeJSONError(w, "invalid auth token", http.StatusBadRequest)
				return
			}
			u = user{ID: subject, Email: email, Admin: s.isAdmin(email)}
		} else if !allowNoLogin {
			log.Ctx(ctx).WarnContext(ctx, "no auth cookie found")
			s.clearCookie(w)
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if u.ID != "" {
			ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authUserID", u.ID)))
		}

		log.Ctx(ctx).DebugContext(
			ctx,
			"authenticated request",
			slog.String("email", u.Email),
			slog.Bool("admin", u.Admin),
		)

		ctx = context.WithValue(ctx, userContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isAdmin reports whether the email may update settings or trigger a
// refresh. With no admin-emails configured every authenticated user is
// an admin.
func (s *Server) isAdmin(email string) bool {
	if len(s.adminEmails) == 0 {
		return true
	}
	for _, adminEmail := range s.adminEmails {
		if email == adminEmail {
			return true
		}
	}
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Parse the token from the JSON body
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// since we failed to read, don't return JSON error
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	email, subject, expires, err := s.authenticateToken(r.Context(), req.Token)
	if err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to validate id token", slog.Any("error", err))
		writeJSONError(w, "invalid id token", http.StatusUnauthorized)
		return
	}

	if email == "" {
		log.Ctx(r.Context()).WarnContext(r.Context(), "invalid email in id token")
		writeJSONError(w, "invalid oidc claims", http.StatusUnauthorized)
		return
	}

	log.Ctx(r.Context()).InfoContext(r.Context(), "login token validated successfully", slog.String("email", email), slog.String("subject", subject))

	// Set the cookie
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    req.Token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusOK)
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w)
	w.WriteHeader(http.StatusOK)
}

type authStatusResponse struct {
	LoggedIn     bool              `json:"loggedIn"`
	Email        string            `json:"email"`
	Admin        bool              `json:"admin"`
	AuthRequired bool              `json:"authRequired"`
	ClientIDs    map[string]string `json:"clientIDs"`
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	u := s.getUser(r)
	loggedIn := u.ID != "" || s.bypassAuth

	err := json.NewEncoder(w).Encode(authStatusResponse{
		LoggedIn:     loggedIn,
		Email:        u.Email,
		Admin:        u.Admin,
		AuthRequired: len(s.oidcAudiences) > 0,
		ClientIDs:    s.oidcAudiences,
	})
	if err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, string, time.Time, error) {
	var errs []error

	for providerName, verifier := range s.oidcVerifiers {
		idToken, err := verifier(ctx, token)
		if err == nil {
			var claims struct {
				Email string `json:"email"`
			}
			err = idToken.Claims(&claims)
			if err == nil {
				return claims.Email, idToken.Subject, idToken.Expiry, nil
			}
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %v", providerName, err))
	}

	if len(errs) > 1 {
		return "", "", time.Time{}, errors.Join(errs...)
	}
	if len(errs) == 1 {
		return "", "", time.Time{}, errs[0]
	}
	return "", "", time.Time{}, errors.New("no valid audiences configured or token invalid")
}
