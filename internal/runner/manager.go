package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"buzzrunner/pkg/models"
)

// ManagerConfig tunes the run registry.
type ManagerConfig struct {
	// MaxConcurrentRuns caps simultaneously executing runs per caller.
	MaxConcurrentRuns int64
	// LogOut receives run log lines in addition to each run's buffer.
	LogOut io.Writer
	// LogLevel applies to per-run loggers.
	LogLevel zerolog.Level
	// LogHistory bounds the per-run log ring.
	LogHistory int
}

// Manager tracks runs by ID and executes them in the background.
type Manager struct {
	cfg    ManagerConfig
	runner *Runner
	log    zerolog.Logger

	runs sync.Map // run ID -> *runEntry

	mu    sync.Mutex
	slots map[string]*semaphore.Weighted
}

type runEntry struct {
	mu     sync.Mutex
	run    models.Run
	result *models.RunResult
	buf    *logBuffer
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg ManagerConfig, runner *Runner, log zerolog.Logger) *Manager {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 2
	}
	if cfg.LogOut == nil {
		cfg.LogOut = io.Discard
	}
	return &Manager{
		cfg:    cfg,
		runner: runner,
		log:    log,
		slots:  make(map[string]*semaphore.Weighted),
	}
}

// Start validates the request and launches the run in the background.
func (m *Manager) Start(req models.RunRequest) (*models.Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.ClientID
	if key == "" {
		key = "default"
	}
	sem := m.slotFor(key)
	if !sem.TryAcquire(1) {
		return nil, fmt.Errorf("concurrency limit reached for client %s", key)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &runEntry{
		run: models.Run{
			ID:         uuid.New().String(),
			ClientID:   req.ClientID,
			Status:     models.StatusPending,
			TargetPost: req.Config().TargetPost,
			StartedAt:  time.Now(),
		},
		buf:    newLogBuffer(m.cfg.LogHistory),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.runs.Store(entry.run.ID, entry)

	go m.execute(ctx, entry, req.Config(), sem)

	return entry.snapshot(), nil
}

func (m *Manager) execute(ctx context.Context, e *runEntry, cfg models.RunConfig, sem *semaphore.Weighted) {
	// LIFO: buffer closes first, then the slot frees, then done unblocks
	// waiters. Await must not return while the slot is still held.
	defer close(e.done)
	defer sem.Release(1)
	defer e.buf.close()

	runLog := zerolog.New(zerolog.MultiLevelWriter(m.cfg.LogOut, &logWriter{buf: e.buf})).
		Level(m.cfg.LogLevel).
		With().Timestamp().Str("run_id", shortID(e.run.ID)).Logger()

	e.setStatus(models.StatusRunning)
	m.log.Info().Str("run_id", e.run.ID).Str("target", e.run.TargetPost).Msg("run started")

	result := m.runner.Run(ctx, cfg, runLog)

	status := models.StatusCompleted
	switch {
	case ctx.Err() != nil:
		status = models.StatusCancelled
	case !result.Success:
		status = models.StatusFailed
	}
	e.finish(status, result)
	m.log.Info().Str("run_id", e.run.ID).Str("status", string(status)).
		Int("comments", result.Stats.TotalComments).Msg("run finished")
}

// Await blocks until the run completes (or ctx is done) and returns its
// result.
func (m *Manager) Await(ctx context.Context, id string) (*models.RunResult, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, nil
}

// Get returns a snapshot of the run.
func (m *Manager) Get(id string) (*models.Run, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

// List returns snapshots of all known runs, newest first.
func (m *Manager) List() []*models.Run {
	var runs []*models.Run
	m.runs.Range(func(_, value any) bool {
		runs = append(runs, value.(*runEntry).snapshot())
		return true
	})
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs
}

// Cancel stops a pending or running run.
func (m *Manager) Cancel(id string) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	status := e.run.Status
	e.mu.Unlock()
	if status != models.StatusPending && status != models.StatusRunning {
		return fmt.Errorf("run is not active")
	}
	e.cancel()
	return nil
}

// Subscribe returns the run's log history plus a live line channel. The
// channel closes when the run finishes.
func (m *Manager) Subscribe(id string) ([]json.RawMessage, <-chan json.RawMessage, func(), error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, nil, nil, err
	}
	history, ch, cancel := e.buf.subscribe()
	return history, ch, cancel, nil
}

// Close cancels every active run. Used on server shutdown.
func (m *Manager) Close() {
	m.runs.Range(func(_, value any) bool {
		value.(*runEntry).cancel()
		return true
	})
}

func (m *Manager) entry(id string) (*runEntry, error) {
	value, ok := m.runs.Load(id)
	if !ok {
		return nil, fmt.Errorf("run not found")
	}
	return value.(*runEntry), nil
}

func (m *Manager) slotFor(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	sem, ok := m.slots[key]
	if !ok {
		sem = semaphore.NewWeighted(m.cfg.MaxConcurrentRuns)
		m.slots[key] = sem
	}
	return sem
}

func (e *runEntry) setStatus(s models.RunStatus) {
	e.mu.Lock()
	e.run.Status = s
	e.mu.Unlock()
}

func (e *runEntry) finish(s models.RunStatus, result *models.RunResult) {
	now := time.Now()
	e.mu.Lock()
	e.run.Status = s
	e.run.FinishedAt = &now
	e.run.Result = result
	e.result = result
	e.mu.Unlock()
}

func (e *runEntry) snapshot() *models.Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.run
	return &cp
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
