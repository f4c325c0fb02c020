// Package service provides the leaderboard cache controller that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/poolboard/internal/adapters/cache"
	"github.com/okian/poolboard/internal/domain/diff"
	"github.com/okian/poolboard/internal/domain/model"
	"github.com/okian/poolboard/internal/domain/normalize"
	"github.com/okian/poolboard/internal/domain/ranking"
	"github.com/okian/poolboard/pkg/logger"
	"github.com/okian/poolboard/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Well-known cache keys.
const (
	KeyPlayers     = "players"
	KeyUpdatedAt   = "last_updated_at"
	KeyPrevious    = "players_previous"
	keyLeasePrefix = "players_refresh_lease:"
)

const defaultTimeout = 30 * time.Second

// Fetcher returns the raw upstream player records.
type Fetcher interface {
	FetchPlayers(ctx context.Context) ([]model.PlayerRecord, error)
}

// Result is the response for one leaderboard request.
type Result struct {
	Players       model.Leaderboard `json:"players"`
	SecondsLeft   int               `json:"secondsLeft"`
	CacheLifetime int               `json:"cacheLifetime"`
}

// Stats is a point-in-time copy of the controller counters.
type Stats struct {
	Requests    int64 `json:"requests"`
	CacheHits   int64 `json:"cacheHits"`
	Refreshes   int64 `json:"refreshes"`
	Commits     int64 `json:"commits"`
	Unchanged   int64 `json:"unchanged"`
	Failures    int64 `json:"failures"`
	ServedStale int64 `json:"servedStale"`
	LeaseSkips  int64 `json:"leaseSkips"`
}

type state int

const (
	stateEmpty state = iota
	stateFresh
	stateStale
)

func (s state) String() string {
	switch s {
	case stateFresh:
		return "fresh"
	case stateStale:
		return "stale"
	default:
		return "empty"
	}
}

// refreshed is what one refresh hands back to every waiting request.
type refreshed struct {
	snapshot model.Snapshot
	stale    bool
}

// Service is the leaderboard cache controller.
type Service struct {
	store   cache.Store
	fetcher Fetcher

	timeout      time.Duration
	now          func() time.Time
	singleFlight bool
	lease        bool
	group        singleflight.Group

	logger logger.Logger

	requests    atomic.Int64
	hits        atomic.Int64
	refreshes   atomic.Int64
	commits     atomic.Int64
	unchanged   atomic.Int64
	failures    atomic.Int64
	servedStale atomic.Int64
	leaseSkips  atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTimeout sets how long a committed leaderboard is served before it is
// stale. It is truncated to whole seconds; anything under a second is ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= time.Second {
			s.timeout = d.Truncate(time.Second)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSingleFlight toggles collapsing of concurrent refreshes within the process.
func WithSingleFlight(enabled bool) Option {
	return func(s *Service) {
		s.singleFlight = enabled
	}
}

// WithRefreshLease makes stale refreshes take a per-window lease from the store,
// so processes sharing a store refresh at most once per window.
func WithRefreshLease(enabled bool) Option {
	return func(s *Service) {
		s.lease = enabled
	}
}

// New constructs a Service over store and fetcher.
func New(store cache.Store, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		store:        store,
		fetcher:      fetcher,
		timeout:      defaultTimeout,
		now:          time.Now,
		singleFlight: true,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the staleness window.
func (s *Service) Timeout() time.Duration { return s.timeout }

// Leaderboard returns the current leaderboard, refreshing it from upstream
// when the cache is empty or stale.
func (s *Service) Leaderboard(ctx context.Context) (Result, error) {
	s.requests.Add(1)

	snap, st := s.load(ctx)
	metrics.RecordCacheLookup(st.String())
	if st == stateFresh {
		s.hits.Add(1)
		return s.result(ctx, snap), nil
	}

	out, err := s.refresh(ctx)
	if err != nil {
		return Result{}, err
	}
	if out.stale {
		s.servedStale.Add(1)
		metrics.RecordServedStale()
	}
	return s.result(ctx, out.snapshot), nil
}

// Stats returns the controller counters.
func (s *Service) Stats() Stats {
	return Stats{
		Requests:    s.requests.Load(),
		CacheHits:   s.hits.Load(),
		Refreshes:   s.refreshes.Load(),
		Commits:     s.commits.Load(),
		Unchanged:   s.unchanged.Load(),
		Failures:    s.failures.Load(),
		ServedStale: s.servedStale.Load(),
		LeaseSkips:  s.leaseSkips.Load(),
	}
}

func (s *Service) refresh(ctx context.Context) (refreshed, error) {
	if !s.singleFlight {
		return s.doRefresh(ctx)
	}
	ch := s.group.DoChan(KeyPlayers, func() (any, error) {
		// One caller going away must not fail the others waiting on this flight.
		return s.doRefresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return refreshed{}, fmt.Errorf("%w: %w", ErrRefresh, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.RecordRefresh(metrics.OutcomeShared)
		}
		if res.Err != nil {
			return refreshed{}, res.Err
		}
		return res.Val.(refreshed), nil
	}
}

func (s *Service) doRefresh(ctx context.Context) (refreshed, error) {
	// Re-check under the flight: an earlier flight may have just committed.
	snap, st := s.load(ctx)
	if st == stateFresh {
		return refreshed{snapshot: snap}, nil
	}

	log := s.logger.With(logger.String("refresh_id", uuid.NewString()), logger.String("state", st.String()))

	if st == stateStale && s.lease && !s.acquireLease(ctx, log) {
		s.leaseSkips.Add(1)
		metrics.RecordRefresh(metrics.OutcomeLeased)
		log.Debug(ctx, "refresh lease held elsewhere, serving cached leaderboard")
		return refreshed{snapshot: snap}, nil
	}

	s.refreshes.Add(1)
	players, err := s.fetch(ctx)
	if err != nil {
		s.failures.Add(1)
		metrics.RecordRefresh(metrics.OutcomeFailed)
		if st == stateStale {
			log.Warn(ctx, "refresh failed, serving cached leaderboard", logger.Error(err))
			return refreshed{snapshot: snap, stale: true}, nil
		}
		log.Error(ctx, "refresh failed with nothing cached", logger.Error(err))
		return refreshed{}, err
	}

	var previous model.Leaderboard
	if st == stateStale {
		previous = snap.Players
	}
	candidate := ranking.Assign(diff.Apply(players, previous))

	if st == stateStale && !diff.Changed(candidate) {
		// Keep the last non-zero diffs and leave the timestamp stale so the
		// next request checks upstream again.
		s.unchanged.Add(1)
		metrics.RecordRefresh(metrics.OutcomeUnchanged)
		log.Debug(ctx, "upstream unchanged, keeping cached leaderboard", logger.Int("players", len(snap.Players)))
		return refreshed{snapshot: snap}, nil
	}

	committed := model.Snapshot{Players: candidate, UpdatedAt: s.now().UTC()}
	s.commit(ctx, log, committed, previous, st == stateStale)
	s.commits.Add(1)
	metrics.RecordRefresh(metrics.OutcomeCommitted)
	metrics.UpdateLastCommit(committed.UpdatedAt.Unix())
	log.Info(ctx, "leaderboard committed", logger.Int("players", len(candidate)))
	return refreshed{snapshot: committed}, nil
}

func (s *Service) fetch(ctx context.Context) ([]model.Player, error) {
	records, err := s.fetcher.FetchPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	players, err := normalize.Players(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	return players, nil
}

// load reads the cached snapshot and classifies it.
func (s *Service) load(ctx context.Context) (model.Snapshot, state) {
	rawPlayers, ok, err := s.store.Get(ctx, KeyPlayers)
	if err != nil {
		s.storeError(ctx, "get", KeyPlayers, err)
		return model.Snapshot{}, stateEmpty
	}
	if !ok {
		return model.Snapshot{}, stateEmpty
	}
	rawUpdated, ok, err := s.store.Get(ctx, KeyUpdatedAt)
	if err != nil {
		s.storeError(ctx, "get", KeyUpdatedAt, err)
		return model.Snapshot{}, stateEmpty
	}
	if !ok {
		return model.Snapshot{}, stateEmpty
	}

	var players model.Leaderboard
	if err := json.Unmarshal(rawPlayers, &players); err != nil {
		s.logger.Warn(ctx, "cached leaderboard is undecodable", logger.Error(err))
		return model.Snapshot{}, stateEmpty
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, string(rawUpdated))
	if err != nil {
		s.logger.Warn(ctx, "cached timestamp is undecodable", logger.Error(err))
		return model.Snapshot{}, stateEmpty
	}

	snap := model.Snapshot{Players: players, UpdatedAt: updatedAt}
	age := s.now().Sub(updatedAt)
	if age < 0 || age.Truncate(time.Second) >= s.timeout {
		return snap, stateStale
	}
	return snap, stateFresh
}

func (s *Service) commit(ctx context.Context, log logger.Logger, snap model.Snapshot, previous model.Leaderboard, keepPrevious bool) {
	players, err := json.Marshal(snap.Players)
	if err != nil {
		log.Error(ctx, "failed to encode leaderboard", logger.Error(err))
		return
	}
	if err := s.store.Set(ctx, KeyPlayers, players); err != nil {
		s.storeError(ctx, "set", KeyPlayers, err)
		return
	}
	if keepPrevious {
		if raw, err := json.Marshal(previous); err == nil {
			if err := s.store.Set(ctx, KeyPrevious, raw); err != nil {
				s.storeError(ctx, "set", KeyPrevious, err)
			}
		}
	}
	if err := s.store.Set(ctx, KeyUpdatedAt, []byte(snap.UpdatedAt.Format(time.RFC3339Nano))); err != nil {
		s.storeError(ctx, "set", KeyUpdatedAt, err)
	}
}

// acquireLease reports whether this process may refresh in the current window.
// The lease key expires with its window. A store failure grants the lease.
func (s *Service) acquireLease(ctx context.Context, log logger.Logger) bool {
	window := s.now().Unix() / int64(s.timeout/time.Second)
	key := keyLeasePrefix + strconv.FormatInt(window, 10)
	ok, err := s.store.Add(ctx, key, []byte("1"), s.timeout)
	if err != nil {
		s.storeError(ctx, "add", key, err)
		log.Warn(ctx, "refresh lease unavailable, refreshing anyway")
		return true
	}
	return ok
}

func (s *Service) result(ctx context.Context, snap model.Snapshot) Result {
	lifetime := int(s.timeout / time.Second)
	age := int(s.now().Sub(snap.UpdatedAt) / time.Second)
	left := lifetime - age
	if left < 0 {
		left = 0
	}
	if left > lifetime {
		left = lifetime
	}

	players := snap.Players
	if players == nil {
		players = model.Leaderboard{}
	}

	metrics.UpdateSecondsLeft(left)
	metrics.UpdateLeaderboardPlayers(len(players))
	s.logger.Debug(ctx, "leaderboard served", logger.Int("secondsLeft", left))

	return Result{Players: players, SecondsLeft: left, CacheLifetime: lifetime}
}

func (s *Service) storeError(ctx context.Context, op, key string, err error) {
	metrics.RecordStoreError(op)
	s.logger.Error(ctx, "cache store operation failed",
		logger.String("op", op),
		logger.String("key", key),
		logger.Error(err),
	)
}
