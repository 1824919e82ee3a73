package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/pricetables/internal/metrics"
	"github.com/rickgao/pricetables/internal/model"
	"github.com/rickgao/pricetables/internal/writer"
)

// State is the lifecycle state of a refresh run.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateWriting  State = "writing"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// TableBuilder builds a complete price table.
type TableBuilder interface {
	BuildPriceTable(ctx context.Context) (model.PriceTable, error)
}

// SnapshotWriter persists a table under a key.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, key string, table model.PriceTable) error
}

// Config holds job configuration.
type Config struct {
	Skew    time.Duration // added to the start time before keying (default: 5m)
	Timeout time.Duration // bound on a single run; 0 = none
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Skew: 5 * time.Minute,
	}
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Key      string
	State    State
	Table    model.PriceTable
	Err      error
	Duration time.Duration
}

// Job performs refresh runs. Runs are serialised.
type Job struct {
	cfg     Config
	builder TableBuilder
	writer  SnapshotWriter
	logger  *slog.Logger
	now     func() time.Time

	runMu sync.Mutex

	mu    sync.Mutex
	state State
	last  *Result
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) JobOption {
	return func(j *Job) {
		j.now = now
	}
}

// NewJob creates a new Job.
func NewJob(cfg Config, builder TableBuilder, w SnapshotWriter, logger *slog.Logger, opts ...JobOption) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Job{
		cfg:     cfg,
		builder: builder,
		writer:  w,
		logger:  logger,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// State returns the state of the current or most recent run.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// LastResult returns the most recent finished run, if any.
func (j *Job) LastResult() (Result, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return Result{}, false
	}
	return *j.last, true
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Run performs one refresh. It never panics on provider or store faults;
// the outcome is reported in the Result.
func (j *Job) Run(ctx context.Context) Result {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	start := j.now()
	res := Result{
		RunID: uuid.NewString(),
		Key:   writer.SnapshotKey(start, j.cfg.Skew),
	}
	logger := j.logger.With("run_id", res.RunID, "key", res.Key)

	if j.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
	}

	logger.Info("refresh started")

	j.setState(StateFetching)
	table, err := j.builder.BuildPriceTable(ctx)
	if err != nil {
		return j.finish(logger, res, start, fmt.Errorf("build price table: %w", err))
	}

	j.setState(StateWriting)
	if err := j.writer.WriteSnapshot(ctx, res.Key, table); err != nil {
		return j.finish(logger, res, start, err)
	}

	res.Table = table
	return j.finish(logger, res, start, nil)
}

func (j *Job) finish(logger *slog.Logger, res Result, start time.Time, err error) Result {
	end := j.now()
	res.Duration = end.Sub(start)
	res.Err = err

	if err != nil {
		res.State = StateFailed
		logger.Error("refresh failed",
			"duration", res.Duration,
			"error", err,
		)
	} else {
		res.State = StateDone
		logger.Info("refresh complete",
			"duration", res.Duration,
			"crypto", len(res.Table.Crypto),
			"nasdaq", len(res.Table.Nasdaq),
			"forex", len(res.Table.Forex),
			"bist", len(res.Table.Bist),
		)
	}
	metrics.RecordRefresh(string(res.State), res.Duration.Seconds(), err == nil, float64(end.Unix()))

	j.mu.Lock()
	j.state = res.State
	j.last = &res
	j.mu.Unlock()

	return res
}
