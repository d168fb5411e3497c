package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"petmatch/internal/domain"

	"go.uber.org/zap"
)

// Storage keys for the persisted session.
const (
	KeyToken  = "userToken"
	KeyRole   = "userRole"
	KeyUserID = "userId"
)

var (
	// ErrEmptyToken indicates Login was called without a token.
	ErrEmptyToken = errors.New("empty session token")
	// ErrUnknownRole indicates Login was called with RoleNone or an unknown role.
	ErrUnknownRole = domain.ErrUnknownRole

	errCorruptSession = errors.New("corrupt stored session")
)

// SessionReader is the read-only view of the session used by guards and views.
type SessionReader interface {
	Snapshot() domain.State
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *SessionStore) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStorageTimeout bounds every storage call.
func WithStorageTimeout(d time.Duration) StoreOption {
	return func(s *SessionStore) { s.timeout = d }
}

// WithExpiryCheck makes Rehydrate discard stored tokens that have expired.
func WithExpiryCheck(fn domain.ExpiryFunc) StoreOption {
	return func(s *SessionStore) { s.expiry = fn }
}

// SessionStore is the single source of truth for who is signed in. Every
// mutation writes through to durable storage before it returns.
type SessionStore struct {
	kv      domain.KeyValueStore
	log     *zap.Logger
	timeout time.Duration
	expiry  domain.ExpiryFunc
	now     func() time.Time

	mu      sync.RWMutex
	sess    domain.Session
	loading bool
	once    sync.Once
}

var _ SessionReader = (*SessionStore)(nil)

// NewSessionStore creates an empty store in the loading state.
func NewSessionStore(kv domain.KeyValueStore, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		kv:      kv,
		log:     zap.NewNop(),
		timeout: 5 * time.Second,
		now:     time.Now,
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rehydrate restores the persisted session. Only the first call reads
// storage; later calls return immediately. Unreadable or corrupt data leaves
// the session empty and clears the stored keys.
func (s *SessionStore) Rehydrate(ctx context.Context) {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer func() { s.loading = false }()

		sess, err := s.read(ctx)
		if err != nil {
			s.log.Warn("discarding stored session", zap.Error(err))
			s.sess = domain.Session{}
			s.clearStorage(ctx)
			return
		}
		s.sess = sess
		if sess.IsAuthenticated() {
			s.log.Info("session restored",
				zap.Stringer("role", sess.Role),
				zap.Int64("user_id", sess.UserID))
		}
	})
}

func (s *SessionStore) read(ctx context.Context) (domain.Session, error) {
	token, hasToken, err := s.get(ctx, KeyToken)
	if err != nil {
		return domain.Session{}, err
	}
	roleTag, hasRole, err := s.get(ctx, KeyRole)
	if err != nil {
		return domain.Session{}, err
	}
	rawID, hasID, err := s.get(ctx, KeyUserID)
	if err != nil {
		return domain.Session{}, err
	}

	if !hasToken || token == "" {
		if hasRole || hasID {
			return domain.Session{}, errors.Join(errCorruptSession, errors.New("role or user id stored without token"))
		}
		return domain.Session{}, nil
	}

	sess := domain.Session{Token: token}
	if hasRole {
		role, err := domain.ParseRole(roleTag)
		if err != nil {
			return domain.Session{}, errors.Join(errCorruptSession, err)
		}
		sess.Role = role
	}
	if hasID {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return domain.Session{}, errors.Join(errCorruptSession, err)
		}
		sess.UserID, sess.HasUserID = id, true
	}

	if s.expiry != nil {
		if exp, ok := s.expiry(token); ok && !s.now().Before(exp) {
			return domain.Session{}, errors.New("stored token expired")
		}
	}
	return sess, nil
}

// Login replaces the whole session and persists it. The caller must already
// hold a grant from the authentication backend. A storage failure leaves the
// store signed out rather than half-persisted.
func (s *SessionStore) Login(ctx context.Context, token string, role domain.Role, userID int64) error {
	if token == "" {
		return ErrEmptyToken
	}
	if !role.Valid() {
		return ErrUnknownRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = domain.Session{Token: token, Role: role, UserID: userID, HasUserID: true}
	err := errors.Join(
		s.set(ctx, KeyToken, token),
		s.set(ctx, KeyRole, role.String()),
		s.set(ctx, KeyUserID, strconv.FormatInt(userID, 10)),
	)
	if err != nil {
		s.log.Warn("session not persisted, signing out", zap.Error(err))
		s.sess = domain.Session{}
		s.clearStorage(ctx)
	}
	return nil
}

// Logout clears the session and its stored keys. Safe to call when signed out.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = domain.Session{}
	s.clearStorage(ctx)
}

// Token returns the current bearer token, if any.
func (s *SessionStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Token, s.sess.Token != ""
}

// HasRole reports whether the principal is authenticated with exactly role.
func (s *SessionStore) HasRole(role domain.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.IsAuthenticated() && s.sess.Role == role
}

// IsAuthenticated reports whether a token is present.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.IsAuthenticated()
}

// Loading reports whether rehydration is still pending.
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns a consistent copy of the session and boot flag.
func (s *SessionStore) Snapshot() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.State{Session: s.sess, Loading: s.loading}
}

// clearStorage deletes every session key; failures are only logged.
func (s *SessionStore) clearStorage(ctx context.Context) {
	for _, key := range []string{KeyToken, KeyRole, KeyUserID} {
		if err := s.del(ctx, key); err != nil {
			s.log.Warn("clear stored session key", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *SessionStore) get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.kv.Get(ctx, key)
}

func (s *SessionStore) set(ctx context.Context, key, value string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.kv.Set(ctx, key, value)
}

func (s *SessionStore) del(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.kv.Delete(ctx, key)
}

func (s *SessionStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
