// Package pgpool manages one pgx pool per registered target database.
package pgpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"agentic-rag/internal/metrics"
)

var (
	ErrPoolExhausted = errors.New("all target database pools are in use")
	ErrClosed        = errors.New("pool manager is closed")
)

type Config struct {
	// MaxPools caps the number of distinct pools held open at once.
	MaxPools int
	// MaxConns is applied to every pool.
	MaxConns int32
	// IdleTTL evicts pools that have had no lease for this long.
	IdleTTL time.Duration
	// JanitorInterval defaults to IdleTTL/2.
	JanitorInterval time.Duration
}

// OpenFunc creates a ready pool for dsn.
type OpenFunc func(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error)

type Option func(*Manager)

func WithOpenFunc(open OpenFunc) Option {
	return func(m *Manager) { m.open = open }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

type entry struct {
	id       uint
	dsn      string
	pool     *pgxpool.Pool
	refs     int
	lastUsed time.Time
	retired  bool
}

// Manager hands out reference-counted leases on per-connection pools.
type Manager struct {
	cfg    Config
	open   OpenFunc
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	pools  map[uint]*entry
	closed bool

	stop chan struct{}
	done chan struct{}
}

func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.MaxPools <= 0 {
		cfg.MaxPools = 16
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 5 * time.Minute
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = cfg.IdleTTL / 2
		if cfg.JanitorInterval < time.Second {
			cfg.JanitorInterval = time.Second
		}
	}
	m := &Manager{
		cfg:    cfg,
		open:   defaultOpen(cfg.IdleTTL),
		now:    time.Now,
		logger: zap.NewNop(),
		pools:  make(map[uint]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultOpen(idle time.Duration) OpenFunc {
	return func(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
		poolConfig, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = maxConns
		poolConfig.MaxConnIdleTime = idle

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return pool, nil
	}
}

// Start runs the idle janitor until Close is called.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil || m.closed {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.janitor(m.stop, m.done)
}

func (m *Manager) janitor(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := m.EvictIdle(); n > 0 {
				m.logger.Info("evicted idle target db pools", zap.Int("count", n))
			}
		}
	}
}

// Lease is a claim on a pool. Release must be called exactly once; extra
// calls are ignored.
type Lease struct {
	m    *Manager
	e    *entry
	once sync.Once
}

func (l *Lease) Pool() *pgxpool.Pool {
	return l.e.pool
}

func (l *Lease) Release() {
	l.once.Do(func() { l.m.release(l.e) })
}

// Acquire returns a lease on the pool for id, opening it when needed. A pool
// registered under a different dsn is replaced.
func (m *Manager) Acquire(ctx context.Context, id uint, dsn string) (*Lease, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if e, ok := m.pools[id]; ok && e.dsn == dsn {
		lease := m.leaseLocked(e)
		m.mu.Unlock()
		return lease, nil
	}
	if _, replacing := m.pools[id]; !replacing && len(m.pools) >= m.cfg.MaxPools && m.lruIdleLocked() == nil {
		m.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	m.mu.Unlock()

	pool, err := m.open(ctx, dsn, m.cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("open pool for connection %d: %w", id, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		pool.Close()
		return nil, ErrClosed
	}
	if e, ok := m.pools[id]; ok && e.dsn == dsn {
		// Another caller opened it first.
		lease := m.leaseLocked(e)
		m.mu.Unlock()
		pool.Close()
		return lease, nil
	}

	var stale []*pgxpool.Pool
	if e, ok := m.pools[id]; ok {
		stale = append(stale, m.retireLocked(e)...)
	}
	if len(m.pools) >= m.cfg.MaxPools {
		victim := m.lruIdleLocked()
		if victim == nil {
			m.mu.Unlock()
			pool.Close()
			closePools(stale)
			return nil, ErrPoolExhausted
		}
		stale = append(stale, m.retireLocked(victim)...)
	}
	e := &entry{id: id, dsn: dsn, pool: pool}
	m.pools[id] = e
	lease := m.leaseLocked(e)
	open := len(m.pools)
	m.mu.Unlock()

	closePools(stale)
	metrics.SetPoolsOpen(open)
	m.logger.Info("opened target db pool", zap.Uint("connection_id", id), zap.Int("pools_open", open))
	return lease, nil
}

// Invalidate closes the pool for id once its outstanding leases are released.
func (m *Manager) Invalidate(id uint) {
	m.mu.Lock()
	e, ok := m.pools[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	stale := m.retireLocked(e)
	open := len(m.pools)
	m.mu.Unlock()

	closePools(stale)
	metrics.SetPoolsOpen(open)
}

// EvictIdle closes pools unused for at least IdleTTL and reports how many.
func (m *Manager) EvictIdle() int {
	m.mu.Lock()
	cutoff := m.now().Add(-m.cfg.IdleTTL)
	var stale []*pgxpool.Pool
	for _, e := range m.pools {
		if e.refs == 0 && !e.lastUsed.After(cutoff) {
			stale = append(stale, m.retireLocked(e)...)
		}
	}
	open := len(m.pools)
	m.mu.Unlock()

	closePools(stale)
	if len(stale) > 0 {
		metrics.SetPoolsOpen(open)
	}
	return len(stale)
}

// Len reports the number of pools currently registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pools)
}

// Close stops the janitor and closes every pool.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	stop, done := m.stop, m.done
	var all []*pgxpool.Pool
	for _, e := range m.pools {
		all = append(all, e.pool)
		e.retired = true
	}
	m.pools = make(map[uint]*entry)
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	closePools(all)
	metrics.SetPoolsOpen(0)
}

func (m *Manager) leaseLocked(e *entry) *Lease {
	e.refs++
	e.lastUsed = m.now()
	return &Lease{m: m, e: e}
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	e.refs--
	e.lastUsed = m.now()
	closeNow := e.retired && e.refs == 0 && !m.closed
	m.mu.Unlock()

	if closeNow {
		e.pool.Close()
	}
}

// retireLocked unregisters e and returns its pool if nothing holds it.
func (m *Manager) retireLocked(e *entry) []*pgxpool.Pool {
	if cur, ok := m.pools[e.id]; ok && cur == e {
		delete(m.pools, e.id)
	}
	e.retired = true
	if e.refs == 0 {
		return []*pgxpool.Pool{e.pool}
	}
	return nil
}

func (m *Manager) lruIdleLocked() *entry {
	var victim *entry
	for _, e := range m.pools {
		if e.refs != 0 {
			continue
		}
		if victim == nil || e.lastUsed.Before(victim.lastUsed) {
			victim = e
		}
	}
	return victim
}

func closePools(pools []*pgxpool.Pool) {
	for _, p := range pools {
		p.Close()
	}
}
