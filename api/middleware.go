package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/config"
)

// Guard authenticates requests with service-account basic auth or a bearer token
// and attaches the resolved access.Context to the request context
type Guard struct {
	authenticator auth.Authenticator
	cache         store.Cache
	accounts      map[string]config.ServiceAccount
	tokens        *TokenIssuer
}

// NewGuard sets up the go-guardian strategies
func NewGuard(accounts []config.ServiceAccount, tokens *TokenIssuer) *Guard {
	g := &Guard{
		accounts: make(map[string]config.ServiceAccount, len(accounts)),
		tokens:   tokens,
	}
	for _, a := range accounts {
		g.accounts[a.Name] = a
	}

	g.authenticator = auth.New()
	g.cache = store.NewFIFO(context.Background(), tokens.ttl)
	basicStrategy := basic.New(g.ValidateAccount, g.cache)
	tokenStrategy := bearer.New(g.verifyBearer, g.cache)

	g.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return g
}

// Middleware rejects unauthenticated requests and resolves the caller's capabilities
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Debugw("unauthorized", "url", r.URL.Path)
			unauthorized(w)
			return
		}

		ac, err := g.resolve(r, user.UserName())
		if err != nil {
			zap.S().Debugw("unauthorized", "url", r.URL.Path, "error", err)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(access.WithContext(r.Context(), ac)))
	})
}

func (g *Guard) resolve(r *http.Request, userName string) (access.Context, error) {
	if raw, ok := bearerToken(r); ok {
		claims, err := g.tokens.Parse(raw)
		if err != nil {
			return access.Context{}, err
		}
		profileID, _ := claims.ProfileID()
		return access.Resolve(profileID, claims.OrganizationID, claims.Roles), nil
	}

	account, ok := g.accounts[userName]
	if !ok {
		return access.Context{}, fmt.Errorf("unknown account %q", userName)
	}
	return access.Resolve(account.ProfileID, account.OrganizationID, account.Roles), nil
}

// CreateToken exchanges service-account basic auth for a bearer token
func (g *Guard) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	name, password, ok := r.BasicAuth()
	if !ok {
		unauthorized(w)
		return
	}

	info, err := g.ValidateAccount(r.Context(), r, name, password)
	if err != nil {
		zap.S().Debugw("token request rejected", "account", name, "error", err)
		unauthorized(w)
		return
	}

	account := g.accounts[name]
	token, expiresAt, err := g.tokens.Issue(account.ProfileID, account.OrganizationID, account.Roles)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Append(tokenStrategy, token, info, r)

	response := map[string]string{
		"token":     token,
		"tokenType": "Bearer",
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	}
	responseBody, err := json.Marshal(response)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Write(responseBody)
}

// ValidateAccount checks a service account name and password against the configured bcrypt hash
func (g *Guard) ValidateAccount(ctx context.Context, r *http.Request, name, password string) (auth.Info, error) {
	nameHash := sha256.Sum256([]byte(name))

	account, ok := g.accounts[name]
	if !ok {
		return nil, fmt.Errorf("no matching account found")
	}

	expectedNameHash := sha256.Sum256([]byte(account.Name))
	nameMatch := subtle.ConstantTimeCompare(nameHash[:], expectedNameHash[:]) == 1

	err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}

	if nameMatch {
		return auth.NewDefaultUser(name, fmt.Sprint(account.ProfileID), nil, nil), nil
	}
	return nil, fmt.Errorf("invalid credentials")
}

// verifyBearer accepts tokens missing from the cache, e.g. after a restart, as long as they verify
func (g *Guard) verifyBearer(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return auth.NewDefaultUser(claims.Subject, claims.Subject, nil, nil), nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "unauthorized"}`))
}
