// Package token issues and validates the signed identity tokens that bind
// requests to an ephemeral per-connection identity.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
)

// ErrInvalidToken is returned for any token that fails validation:
// malformed shape, bad timestamp, signature mismatch, or no matching
// record in the shared store.
var ErrInvalidToken = errors.New("invalid token")

// Records is the slice of the shared store the service needs: one active
// token record per identity.
type Records interface {
	SetToken(ctx context.Context, identity, token string, ttl time.Duration) error
	GetToken(ctx context.Context, identity string) (string, error)
}

// Service issues and validates identity tokens. Tokens are
// `identity.issuedAtMillis.signature` where the signature is an
// HMAC-SHA256 over `identity + "." + issuedAtMillis` keyed by a
// process-wide secret shared across the cluster.
type Service struct {
	secret  []byte
	ttl     time.Duration
	records Records

	now func() time.Time

	// lastIssued keeps issue timestamps strictly increasing so two issues
	// within the same millisecond still mint distinct tokens, and the
	// stored-record equality check actually revokes the older one.
	mu         sync.Mutex
	lastIssued int64
}

// NewService creates a token service. ttl bounds how long an issued token
// record survives before the client must re-issue.
func NewService(secret string, ttl time.Duration, records Records) *Service {
	return &Service{
		secret:  []byte(secret),
		ttl:     ttl,
		records: records,
		now:     time.Now,
	}
}

// NewIdentity mints a fresh opaque identity.
func NewIdentity() string {
	return uuid.NewString()
}

// sign is the single place the signature is computed so issuance and
// validation cannot drift.
func (s *Service) sign(identity string, issuedAtMillis int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s.%d", identity, issuedAtMillis)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue builds a token for identity and stores it as the identity's single
// active token. Any previously issued token stops validating.
func (s *Service) Issue(ctx context.Context, identity string) (string, error) {
	issuedAt := s.nextIssuedAt()
	tok := fmt.Sprintf("%s.%d.%s", identity, issuedAt, s.sign(identity, issuedAt))

	if err := s.records.SetToken(ctx, identity, tok, s.ttl); err != nil {
		return "", err
	}

	metrics.TokensIssued.Inc()
	return tok, nil
}

func (s *Service) nextIssuedAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	millis := s.now().UnixMilli()
	if millis <= s.lastIssued {
		millis = s.lastIssued + 1
	}
	s.lastIssued = millis
	return millis
}

// Validate checks tok and returns the embedded identity. A token is valid
// only if the signature recomputes and the stored record for the identity
// equals the presented token byte-for-byte. No side effects on failure.
func (s *Service) Validate(ctx context.Context, tok string) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}

	identity, tsField, sig := parts[0], parts[1], parts[2]

	issuedAt, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil || issuedAt <= 0 {
		return "", ErrInvalidToken
	}

	expected := s.sign(identity, issuedAt)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", ErrInvalidToken
	}

	stored, err := s.records.GetToken(ctx, identity)
	if err != nil {
		return "", err
	}
	if stored == "" || stored != tok {
		return "", ErrInvalidToken
	}

	return identity, nil
}
