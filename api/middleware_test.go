package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/config"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewGuard([]config.ServiceAccount{{
		Name:           "intake-kiosk",
		PasswordHash:   string(hash),
		ProfileID:      10,
		OrganizationID: int64Ptr(1),
		Roles:          []string{access.RoleCaseworker},
	}}, NewTokenIssuer("test-secret", time.Hour))
}

// echoAccess writes the resolved access context back as json
var echoAccess = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	ac, ok := access.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profileId": ac.ProfileID,
		"orgId":     ac.OrganizationID,
		"canTriage": ac.Has(access.CanTriageCfs),
		"canShare":  ac.Has(access.CanShareCfs),
	})
})

func TestCreateToken(t *testing.T) {
	g := newTestGuard(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/token", nil)
	req.SetBasicAuth("intake-kiosk", "s3cret")
	rr := httptest.NewRecorder()
	g.CreateToken(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Bearer", body["tokenType"])
	assert.NotEmpty(t, body["expiresAt"])

	claims, err := g.tokens.Parse(body["token"])
	require.NoError(t, err)
	assert.Equal(t, "10", claims.Subject)
}

func TestCreateTokenBadPassword(t *testing.T) {
	g := newTestGuard(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/token", nil)
	req.SetBasicAuth("intake-kiosk", "wrong")
	rr := httptest.NewRecorder()
	g.CreateToken(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateTokenNoCredentials(t *testing.T) {
	g := newTestGuard(t)

	rr := httptest.NewRecorder()
	g.CreateToken(rr, httptest.NewRequest("POST", "/api/v1/auth/token", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error": "unauthorized"}`, rr.Body.String())
}

func TestValidateAccountUnknown(t *testing.T) {
	g := newTestGuard(t)
	_, err := g.ValidateAccount(context.Background(), nil, "nobody", "s3cret")
	assert.Error(t, err)
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	g := newTestGuard(t)

	rr := httptest.NewRecorder()
	g.Middleware(echoAccess).ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/cfs/1", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareBearerResolvesClaims(t *testing.T) {
	g := newTestGuard(t)
	token, _, err := g.tokens.Issue(22, int64Ptr(3), []string{access.RoleSupervisor})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/cfs/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	g.Middleware(echoAccess).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"profileId": 22, "orgId": 3, "canTriage": true, "canShare": true}`, rr.Body.String())
}

func TestMiddlewareBasicResolvesAccount(t *testing.T) {
	g := newTestGuard(t)

	req := httptest.NewRequest("GET", "/api/v1/cfs/1", nil)
	req.SetBasicAuth("intake-kiosk", "s3cret")
	rr := httptest.NewRecorder()
	g.Middleware(echoAccess).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"profileId": 10, "orgId": 1, "canTriage": true, "canShare": false}`, rr.Body.String())
}

func TestMiddlewareRejectsForgedBearer(t *testing.T) {
	g := newTestGuard(t)
	forged, _, err := NewTokenIssuer("other-secret", time.Hour).Issue(22, int64Ptr(3), []string{access.RoleOrgAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/cfs/1", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rr := httptest.NewRecorder()
	g.Middleware(echoAccess).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWithQueryTimeoutDefault(t *testing.T) {
	ctx, cancel := WithQueryTimeout(context.Background(), 0)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(QueryTimeout), deadline, time.Second)
}

func TestMetricsMiddlewareSetsRequestID(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/api/v1/cfs/{cfs_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/cfs/7", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/api/v1/cfs/7", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}
