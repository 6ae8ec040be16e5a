// Package service owns the open tagging sessions and connects them to
// persistence, the marker hand-off and live clients.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/matchtag/internal/adapters/mq/handoff"
	eventqueue "github.com/okian/matchtag/internal/adapters/mq/queue"
	workerpool "github.com/okian/matchtag/internal/adapters/mq/worker"
	"github.com/okian/matchtag/internal/adapters/repository"
	"github.com/okian/matchtag/internal/domain/autogen"
	"github.com/okian/matchtag/internal/domain/dedupe"
	"github.com/okian/matchtag/internal/domain/session"
	"github.com/okian/matchtag/internal/domain/validation"
	"github.com/okian/matchtag/pkg/logger"
	"github.com/okian/matchtag/pkg/metrics"
)

const (
	defaultQueueSize       = 10000
	defaultIdempotencySize = 10000
	handoffTimeout         = 5 * time.Second
	maxMatchIDLength       = 128
)

// Broadcaster pushes a message to the clients following a match.
type Broadcaster interface {
	Broadcast(matchID, kind string, data any)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, string, any) {}

// matchSession is an open session with its persistence revision. The mutex
// serialises every command on the match.
type matchSession struct {
	mu        sync.Mutex
	sess      *session.Session
	revision  int64
	handedOff bool
}

// Service implements the API dependencies for match tagging.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.EventStore
	idempotency dedupe.Cache
	saveQueue   eventqueue.Queue
	workerPool  *workerpool.Pool
	publisher   handoff.Publisher
	broadcaster Broadcaster

	// Configuration
	workerCount     int
	queueSize       int
	idempotencySize int
	kickoutDelay    float64
	foulOffset      float64
	kickoutLookback int
	kickoutWindow   float64

	sessions map[string]*matchSession
	started  bool

	// cancelWorkers stops the pool once Stop has drained the queue.
	cancelWorkers context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		idempotencySize: defaultIdempotencySize,
		kickoutDelay:    -1,
		broadcaster:     nopBroadcaster{},
		sessions:        make(map[string]*matchSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the queue and idempotency cache and starts the workers.
// The workers outlive ctx; they run until Stop has drained the queue.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory event store")
	}
	if s.publisher == nil {
		s.publisher = handoff.NewLogPublisher(nil)
	}

	s.idempotency = dedupe.NewInMemoryCache(dedupe.WithMaxSize(s.idempotencySize))
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.saveQueue = q
	s.workerPool = workerpool.NewPool(s.workerCount, q, s.store)
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelWorkers = cancel
	s.workerPool.Start(workerCtx)

	s.started = true
	s.logger.Info(ctx, "tagging service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("idempotencySize", s.idempotencySize),
	)
	return nil
}

// Stop drains pending saves and releases the publisher.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping tagging service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancelWorkers()
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	s.started = false
	s.logger.Info(ctx, "tagging service stopped")
	return errors.Join(errs...)
}

func (s *Service) sessionOptions() []session.Option {
	var opts []session.Option
	if s.kickoutDelay >= 0 {
		opts = append(opts, session.WithKickoutDelay(s.kickoutDelay))
	}
	if s.foulOffset > 0 {
		opts = append(opts, session.WithGenerator(autogen.New(autogen.WithFoulOffset(s.foulOffset))))
	}
	if s.kickoutLookback > 0 {
		opts = append(opts, session.WithValidator(validation.New(validation.WithKickoutWindow(s.kickoutLookback, s.kickoutWindow))))
	}
	return opts
}

func validMatchID(id string) bool {
	return id != "" && len(id) <= maxMatchIDLength && !strings.ContainsAny(id, "/ \t\n")
}

// Open returns the session of matchID, loading it from the store the first
// time. Opening an open match is a no-op.
func (s *Service) Open(ctx context.Context, matchID string) (View, error) {
	if !validMatchID(matchID) {
		return View{}, ErrInvalidMatchID
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return View{}, ErrNotStarted
	}
	ms, ok := s.sessions[matchID]
	if !ok {
		events, rev, err := s.store.Load(ctx, matchID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.mu.Unlock()
			metrics.RecordErrorByComponent("service", "load_error")
			return View{}, fmt.Errorf("load match %s: %w", matchID, err)
		}
		sess := session.New(s.sessionOptions()...)
		if len(events) > 0 {
			sess.Load(events)
		}
		ms = &matchSession{sess: sess, revision: rev}
		_, ms.handedOff = sess.MatchTimeMarkers()
		s.sessions[matchID] = ms
		metrics.UpdateActiveSessions(len(s.sessions))
		s.logger.Info(ctx, "match session opened",
			logger.String("match_id", matchID),
			logger.Int("events", len(events)),
			logger.Int64("revision", rev),
		)
	}
	s.mu.Unlock()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return viewOf(matchID, ms), nil
}

// Close persists and forgets an open session.
func (s *Service) Close(ctx context.Context, matchID string) error {
	s.mu.Lock()
	ms, ok := s.sessions[matchID]
	if ok {
		delete(s.sessions, matchID)
		metrics.UpdateActiveSessions(len(s.sessions))
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	s.persist(ctx, matchID, ms)
	s.logger.Info(ctx, "match session closed", logger.String("match_id", matchID))
	return nil
}

func (s *Service) lookup(matchID string) (*matchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	ms, ok := s.sessions[matchID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms, nil
}

// read runs fn on the session of matchID under its lock.
func (s *Service) read(matchID string, fn func(ms *matchSession)) error {
	ms, err := s.lookup(matchID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	fn(ms)
	return nil
}

// mutate runs fn on the session of matchID under its lock. A false return
// from fn means the command did not apply. When historyChanged is set the
// new history is queued for saving. Every applied command is pushed to live
// clients and may trigger the marker hand-off.
func (s *Service) mutate(ctx context.Context, matchID string, fn func(sess *session.Session) (applied, historyChanged bool)) (View, error) {
	ms, err := s.lookup(matchID)
	if err != nil {
		return View{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	applied, changed := fn(ms.sess)
	if !applied {
		return viewOf(matchID, ms), ErrNotApplied
	}
	if changed {
		s.persist(ctx, matchID, ms)
	}
	s.handoff(ctx, matchID, ms)
	v := viewOf(matchID, ms)
	s.broadcaster.Broadcast(matchID, "state", v)
	return v, nil
}

// persist bumps the revision and queues the history. A full queue is only
// logged: the next change carries the whole list again.
func (s *Service) persist(ctx context.Context, matchID string, ms *matchSession) {
	ms.revision++
	job := eventqueue.SaveJob{MatchID: matchID, Revision: ms.revision, Events: ms.sess.Events()}
	if !s.saveQueue.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "save queue refused job",
			logger.String("match_id", matchID),
			logger.Int64("revision", ms.revision),
		)
	}
}

// handoff publishes the match-time markers the first time they are all set.
// A failed publish is retried on the next command.
func (s *Service) handoff(ctx context.Context, matchID string, ms *matchSession) {
	if ms.handedOff {
		return
	}
	m, ok := ms.sess.MatchTimeMarkers()
	if !ok {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, handoffTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, matchID, m); err != nil {
		metrics.RecordMarkerHandoff("failed")
		s.logger.Error(ctx, "marker hand-off failed", logger.String("match_id", matchID), logger.Error(err))
		return
	}
	ms.handedOff = true
	metrics.RecordMarkerHandoff("published")
	s.logger.Info(ctx, "match time markers handed off", logger.String("match_id", matchID))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"idempotencySize": s.idempotencySize,
		"openSessions":    len(s.sessions),
	}
	if s.started {
		stats["queueLength"] = s.saveQueue.Len(ctx)
		stats["storedMatches"] = s.store.Count(ctx)
		stats["idempotencyKeys"] = s.idempotency.Size()
	}
	return stats
}
