package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fleetgauge/fleetgauge/pkg/storage/storagemock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Bypass Mode Allows Everything", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})

		var got user
		handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = srv.getUser(r)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/api/fleet", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.True(t, got.Admin)
	})

	t.Run("No Cookie Is Unauthorized", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		srv.bypassAuth = false
		srv.oidcAudiences = map[string]string{"google": "test-audience"}
		srv.oidcVerifiers = map[string]tokenVerifier{
			"google": func(ctx context.Context, raw string) (*oidc.IDToken, error) {
				return nil, assert.AnError
			},
		}

		req := httptest.NewRequest("GET", "/api/fleet", nil)
		w := httptest.NewRecorder()
		srv.authMiddleware(okHandler).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
	})

	t.Run("Invalid Cookie Is Rejected", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		srv.bypassAuth = false
		srv.oidcAudiences = map[string]string{"google": "test-audience"}
		srv.oidcVerifiers = map[string]tokenVerifier{
			"google": func(ctx context.Context, raw string) (*oidc.IDToken, error) {
				return nil, assert.AnError
			},
		}

		req := httptest.NewRequest("GET", "/api/fleet", nil)
		req.AddCookie(&http.Cookie{Name: authTokenCookie, Value: "bogus"})
		w := httptest.NewRecorder()
		srv.authMiddleware(okHandler).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("Auth Status Allowed Without Login", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		srv.bypassAuth = false
		srv.oidcAudiences = map[string]string{"google": "test-audience"}

		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/auth/status", srv.handleAuthStatus)

		req := httptest.NewRequest("GET", "/api/auth/status", nil)
		w := httptest.NewRecorder()
		srv.authMiddleware(mux).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Result().StatusCode)

		var status authStatusResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
		assert.False(t, status.LoggedIn)
		assert.True(t, status.AuthRequired)
		assert.Equal(t, "test-audience", status.ClientIDs["google"])
	})
}

func TestIsAdmin(t *testing.T) {
	t.Run("No Admin List Means Everyone", func(t *testing.T) {
		srv := &Server{}
		assert.True(t, srv.isAdmin("anyone@example.com"))
	})

	t.Run("Admin List Restricts", func(t *testing.T) {
		srv := &Server{adminEmails: []string{"ops@example.com"}}
		assert.True(t, srv.isAdmin("ops@example.com"))
		assert.False(t, srv.isAdmin("viewer@example.com"))
	})
}

func TestLogin(t *testing.T) {
	t.Run("Invalid Body", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})

		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		w := httptest.NewRecorder()
		srv.handleLogin(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		srv.oidcVerifiers = map[string]tokenVerifier{
			"google": func(ctx context.Context, raw string) (*oidc.IDToken, error) {
				return nil, assert.AnError
			},
		}

		req := httptest.NewRequest("POST", "/api/auth/login", jsonBody(t, map[string]string{"token": "bad"}))
		w := httptest.NewRecorder()
		srv.handleLogin(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	srv := newTestServer(&storagemock.MockDatabase{})

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	srv.handleLogout(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authTokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
