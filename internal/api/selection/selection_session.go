package selection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-municipio-insights/app/observability/metrics"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultSessionTTL = 2 * time.Hour

// SessionStore keeps one Controller per session id. Sessions expire after ttl
// without access; expiry or deletion cancels the session's in-flight work.
type SessionStore struct {
	cache         *cache.Cache
	ttl           time.Duration
	newController func() *Controller
	logger        *slog.Logger
}

func NewSessionStore(ttl time.Duration, newController func() *Controller, logger *slog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cleanup := ttl / 2
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	s := &SessionStore{
		cache:         cache.New(ttl, cleanup),
		ttl:           ttl,
		newController: newController,
		logger:        logger.With(slog.String("component", "sessions")),
	}
	s.cache.OnEvicted(s.evicted)
	return s
}

// Create starts a new session and kicks off its state list load.
func (s *SessionStore) Create(ctx context.Context) (string, *Controller) {
	id := uuid.NewString()
	ctrl := s.newController()
	ctrl.LoadStates()
	s.cache.Set(id, ctrl, s.ttl)
	metrics.Get().ActiveSessions.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Session created", slog.String("session_id", id))
	return id, ctrl
}

// Get returns the session's controller and extends its idle deadline.
func (s *SessionStore) Get(id string) (*Controller, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	ctrl := v.(*Controller)
	s.cache.Set(id, ctrl, s.ttl)
	return ctrl, nil
}

// Delete ends a session.
func (s *SessionStore) Delete(id string) error {
	if _, ok := s.cache.Get(id); !ok {
		return ErrSessionNotFound
	}
	s.cache.Delete(id)
	return nil
}

func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}

// Close ends every session.
func (s *SessionStore) Close() {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}

func (s *SessionStore) evicted(id string, v interface{}) {
	ctrl, ok := v.(*Controller)
	if !ok {
		return
	}
	ctrl.Close()
	metrics.Get().ActiveSessions.Add(context.Background(), -1)
	s.logger.Info("Session closed", slog.String("session_id", id))
}
