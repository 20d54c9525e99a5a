package webui

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader is an alternative to "Authorization: Bearer <key>".
const APIKeyHeader = "X-API-Key"

// DefaultKeyCost is the bcrypt cost used by HashAPIKey.
const DefaultKeyCost = 12

// Auth errors
var (
	ErrEmptyAPIKey    = errors.New("webui: api key cannot be empty")
	ErrInvalidKeyHash = errors.New("webui: invalid api key hash")
	ErrKeyMismatch    = errors.New("webui: api key does not match")
)

// HashAPIKey returns the bcrypt hash to configure for key.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyAPIKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), DefaultKeyCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// APIKeyAuth checks request keys against one bcrypt hash. A key that
// verified once is remembered by its SHA-256 digest, so only the first
// request with a given key pays for bcrypt.
type APIKeyAuth struct {
	hash   []byte
	logger *zap.Logger

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewAPIKeyAuth validates hash and returns an APIKeyAuth for it.
func NewAPIKeyAuth(hash string, logger *zap.Logger) (*APIKeyAuth, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, ErrInvalidKeyHash
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIKeyAuth{
		hash:     []byte(hash),
		logger:   logger,
		verified: make(map[[sha256.Size]byte]struct{}),
	}, nil
}

// Verify reports whether key matches the configured hash.
func (a *APIKeyAuth) Verify(key string) error {
	if key == "" {
		return ErrEmptyAPIKey
	}
	digest := sha256.Sum256([]byte(key))

	a.mu.RLock()
	_, ok := a.verified[digest]
	a.mu.RUnlock()
	if ok {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(key)); err != nil {
		return ErrKeyMismatch
	}
	a.mu.Lock()
	a.verified[digest] = struct{}{}
	a.mu.Unlock()
	return nil
}

// requestKey extracts the key from the Authorization or X-API-Key header.
func requestKey(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

// Middleware rejects requests without a valid key with 401.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Verify(requestKey(r)); err != nil {
			a.logger.Warn("rejected request",
				zap.String("path", r.URL.Path),
				zap.String("client_ip", getClientIP(r)),
				zap.Error(err))
			w.Header().Set("WWW-Authenticate", `Bearer realm="classifier"`)
			writeError(w, http.StatusUnauthorized, "missing or invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
