// Package admin implements the shop owner's area: login against the admin API,
// the persisted admin session and product maintenance.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/sareesanskriti/storefront/pkg/auth"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// AuthKey is the slot holding the admin session.
const AuthKey = "saree_sanskriti_admin_auth"

// Session is the persisted admin login.
type Session struct {
	Username        string `json:"username"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// SessionStore persists the admin session next to the cart, one slot per browsing session.
type SessionStore struct {
	slot   kv.Slot
	logger *slog.Logger
	now    func() time.Time
}

func NewSessionStore(slot kv.Slot, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		slot:   slot,
		logger: logger.With("component", "admin_session"),
		now:    time.Now,
	}
}

func (s *SessionStore) key(ctx context.Context) string {
	if sid, ok := web.GetSessionID(ctx); ok {
		return AuthKey + ":" + sid
	}
	return AuthKey
}

// Load returns the stored session. A stored raw string is taken as a bare token.
// Missing or unreadable state yields a zero Session.
func (s *SessionStore) Load(ctx context.Context) Session {
	raw, err := s.slot.Get(ctx, s.key(ctx))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read admin session", "error", err)
		}
		return Session{}
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err == nil {
		return sess
	}
	var token string
	if err := json.Unmarshal([]byte(raw), &token); err == nil {
		return Session{Token: token}
	}
	if t := strings.TrimSpace(raw); t != "" && !strings.ContainsAny(t, "{[\"") {
		return Session{Token: t}
	}
	return Session{}
}

func (s *SessionStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.slot.Set(ctx, s.key(ctx), string(data))
}

// Clear logs out. Clearing an absent session is fine.
func (s *SessionStore) Clear(ctx context.Context) error {
	return s.slot.Delete(ctx, s.key(ctx))
}

// Token returns the stored token, or "" when there is none.
func (s *SessionStore) Token(ctx context.Context) string {
	return s.Load(ctx).Token
}

// IsAuthenticated requires the authenticated flag, a token and, when the token is
// a JWT with an expiry, that it has not expired.
func (s *SessionStore) IsAuthenticated(ctx context.Context) bool {
	sess := s.Load(ctx)
	if !sess.IsAuthenticated || sess.Token == "" {
		return false
	}
	return !auth.Inspect(sess.Token).Expired(s.now())
}
