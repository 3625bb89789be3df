package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/metrics"
	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/services"
	"github.com/carelog-g8/carelog/internal/mocks"
)

type authFixture struct {
	sessions *services.SessionService
	revoker  *mocks.MockTokenRevoker
	mw       *AuthMiddleware
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	revoker := mocks.NewMockTokenRevoker()
	sessions := services.NewSessionService(key, revoker)
	return &authFixture{
		sessions: sessions,
		revoker:  revoker,
		mw:       NewAuthMiddleware(sessions, zap.NewNop()),
	}
}

func (f *authFixture) token(t *testing.T, username string, role domain.Role, hospital string) string {
	t.Helper()
	tok, err := f.sessions.IssueToken(domain.User{Username: username, Role: role}, hospital)
	require.NoError(t, err)
	return tok
}

// echoCaller writes the authenticated username so tests can see what reached
// the handler.
var echoCaller = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	c, ok := CallerFrom(r.Context())
	if !ok {
		http.Error(w, "no caller", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(c.Username + "/" + string(c.Role) + "/" + c.Hospital))
})

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.token(t, "admin1", domain.RoleAdmin, "H1")
	patient := f.token(t, "p1", domain.RolePatient, "H1")

	tests := []struct {
		name       string
		header     string
		roles      []domain.Role
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not a bearer token", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "too many parts", header: "Bearer a b", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "any role", header: "Bearer " + patient, wantStatus: http.StatusOK, wantBody: "p1/patient/H1"},
		{name: "allowed role", header: "Bearer " + admin, roles: []domain.Role{domain.RoleAdmin}, wantStatus: http.StatusOK, wantBody: "admin1/admin/H1"},
		{name: "role mismatch", header: "Bearer " + patient, roles: []domain.Role{domain.RoleAdmin, domain.RoleClinician}, wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			f.mw.RequireRole(tt.roles...)(echoCaller).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireRoleRejectsRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.token(t, "p1", domain.RolePatient, "H1")

	claims, err := f.sessions.Verify(context.Background(), tok)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Logout(context.Background(), claims))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.mw.RequireRole()(echoCaller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleRevocationStoreDown(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.token(t, "p1", domain.RolePatient, "H1")
	f.revoker.IsRevokedError = errors.New("redis down")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.mw.RequireRole()(echoCaller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleNestedReusesClaims(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.token(t, "clin1", domain.RoleClinician, "H1")

	handler := f.mw.RequireRole()(f.mw.RequireRole(domain.RoleClinician)(echoCaller))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clin1/clinician/H1", rec.Body.String())
}

func TestRequireHospital(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.token(t, "admin1", domain.RoleAdmin, "H1")

	r := chi.NewRouter()
	r.Route("/hospitals/{hospitalID}", func(r chi.Router) {
		r.Use(f.mw.RequireRole())
		r.Use(f.mw.RequireHospital("hospitalID"))
		r.Get("/users", echoCaller)
	})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/hospitals/H1/users", wantStatus: http.StatusOK},
		{path: "/hospitals/H2/users", wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireHospitalWithoutClaims(t *testing.T) {
	f := newAuthFixture(t)
	rec := httptest.NewRecorder()
	f.mw.RequireHospital("hospitalID")(echoCaller).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestMetricsRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r := chi.NewRouter()
	r.Use(RequestMetrics(m, zap.NewNop()))
	r.Get("/patients/{patient}/notes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, p := range []string{"p1", "p2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/"+p+"/notes", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	count, err := testutil.GatherAndCount(reg, "carelog_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "requests to one route share a series")
}
