package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/five82/appdeck/internal/manager"
	"github.com/five82/appdeck/internal/state"
)

var (
	// ErrTransitionInProgress is returned when an operation is requested for
	// an application that is already installing, uninstalling or updating.
	ErrTransitionInProgress = errors.New("transition already in progress")
	// ErrInvalidAppID is returned for an empty application id.
	ErrInvalidAppID = errors.New("app id required")
	// ErrClosed is returned once the coordinator has been closed.
	ErrClosed = errors.New("coordinator closed")
)

// DefaultPollInterval is how often a transition is re-checked.
const DefaultPollInterval = 5 * time.Second

// Options configure a Coordinator. Zero values pick the defaults.
type Options struct {
	PollInterval time.Duration
	// MaxAttempts bounds the number of poll ticks per transition; zero means
	// unbounded.
	MaxAttempts int
	// PollTimeout bounds how long a transition is polled; zero means
	// unbounded.
	PollTimeout time.Duration
	Clock       clock.Clock
	Logger      *zap.Logger
}

// Outcome describes how a transition ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeRejected
	OutcomeTimedOut
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Result is the last finished transition for an application.
type Result struct {
	Kind     state.Kind
	Outcome  Outcome
	Attempts int
	Err      error
	At       time.Time
}

// PollKey identifies a running poll loop.
type PollKey struct {
	ID   string
	Kind state.Kind
}

func (k PollKey) String() string {
	return k.Kind.String() + ":" + k.ID
}

// Coordinator runs install, uninstall and update operations: it marks the
// application as transitioning, issues the remote write and then polls the
// catalog until the transition is observed to have finished.
type Coordinator struct {
	catalog *state.Catalog
	tracker *state.Tracker
	writer  manager.AppWriter

	clock       clock.Clock
	logger      *zap.Logger
	interval    time.Duration
	timeout     time.Duration
	maxAttempts int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu serialises every tracker mutation made by the coordinator together
	// with the poll registry, so a stale loop can never clear a newer mark.
	mu      sync.Mutex
	polls   map[string]*pollLoop
	results map[string]Result
	closed  bool
}

// New builds a Coordinator over an existing catalog and tracker.
func New(catalog *state.Catalog, tracker *state.Tracker, writer manager.AppWriter, opts Options) *Coordinator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}
	if opts.PollTimeout < 0 {
		opts.PollTimeout = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		catalog:     catalog,
		tracker:     tracker,
		writer:      writer,
		clock:       opts.Clock,
		logger:      opts.Logger,
		interval:    opts.PollInterval,
		timeout:     opts.PollTimeout,
		maxAttempts: opts.MaxAttempts,
		ctx:         ctx,
		cancel:      cancel,
		polls:       make(map[string]*pollLoop),
		results:     make(map[string]Result),
	}
}

// Install requests installation of id. The returned error reflects only the
// write call; completion is tracked in the background.
func (c *Coordinator) Install(ctx context.Context, id string) error {
	return c.start(ctx, state.KindInstall, id)
}

// Uninstall requests removal of id.
func (c *Coordinator) Uninstall(ctx context.Context, id string) error {
	return c.start(ctx, state.KindUninstall, id)
}

// Update requests an update of id.
func (c *Coordinator) Update(ctx context.Context, id string) error {
	return c.start(ctx, state.KindUpdate, id)
}

// Start dispatches to Install, Uninstall or Update by kind.
func (c *Coordinator) Start(ctx context.Context, kind state.Kind, id string) error {
	return c.start(ctx, kind, id)
}

func (c *Coordinator) start(ctx context.Context, kind state.Kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidAppID
	}
	write, err := c.writeFunc(kind)
	if err != nil {
		return err
	}
	log := c.logger.With(zap.String("app", id), zap.Stringer("kind", kind))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, polling := c.polls[id]; polling || !c.tracker.Claim(kind, id) {
		c.mu.Unlock()
		log.Info("rejecting overlapping operation", zap.Strings("pending", kindNames(c.tracker.KindsOf(id))))
		return fmt.Errorf("%s %s: %w", kind, id, ErrTransitionInProgress)
	}
	c.mu.Unlock()

	log.Info("requesting operation")
	if err := write(ctx, id); err != nil {
		c.mu.Lock()
		c.tracker.Remove(kind, id)
		c.results[id] = Result{Kind: kind, Outcome: OutcomeRejected, Err: err, At: c.clock.Now()}
		c.mu.Unlock()
		log.Warn("operation rejected", zap.Error(err))
		return fmt.Errorf("%s %s: %w", kind, id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.tracker.Remove(kind, id)
		log.Info("operation accepted after close; not polling")
		return nil
	}
	loop := c.newPollLoop(PollKey{ID: id, Kind: kind})
	c.polls[id] = loop
	delete(c.results, id)
	c.wg.Add(1)
	go c.run(loop)
	log.Info("operation accepted; polling for completion", zap.Duration("interval", c.interval))
	return nil
}

func (c *Coordinator) writeFunc(kind state.Kind) (func(context.Context, string) error, error) {
	switch kind {
	case state.KindInstall:
		return c.writer.Install, nil
	case state.KindUninstall:
		return c.writer.Uninstall, nil
	case state.KindUpdate:
		return c.writer.Update, nil
	default:
		return nil, fmt.Errorf("unknown transition kind %d", kind)
	}
}

// Installing reports whether id is marked as installing.
func (c *Coordinator) Installing(id string) bool {
	return c.tracker.Has(state.KindInstall, id)
}

// Uninstalling reports whether id is marked as uninstalling.
func (c *Coordinator) Uninstalling(id string) bool {
	return c.tracker.Has(state.KindUninstall, id)
}

// Updating reports whether id is marked as updating.
func (c *Coordinator) Updating(id string) bool {
	return c.tracker.Has(state.KindUpdate, id)
}

// Polls lists the running poll loops, ordered by id.
func (c *Coordinator) Polls() []PollKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]PollKey, 0, len(c.polls))
	for _, p := range c.polls {
		keys = append(keys, p.key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys
}

// Outcome returns the last finished transition for id.
func (c *Coordinator) Outcome(id string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[id]
	return r, ok
}

// Cancel stops polling id and clears its mark. It reports whether a loop was
// running.
func (c *Coordinator) Cancel(id string) bool {
	c.mu.Lock()
	p, ok := c.polls[id]
	if ok {
		c.retire(p, Result{Kind: p.key.Kind, Outcome: OutcomeCancelled, At: c.clock.Now()})
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	p.cancel()
	c.logger.Info("polling cancelled", zap.String("app", id), zap.Stringer("kind", p.key.Kind))
	return true
}

// Close stops every poll loop, clears their marks and waits for them to exit.
// Further operations fail with ErrClosed.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	now := c.clock.Now()
	for _, p := range c.polls {
		c.retire(p, Result{Kind: p.key.Kind, Outcome: OutcomeCancelled, At: now})
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// retire unregisters p and clears its mark. Callers hold mu.
func (c *Coordinator) retire(p *pollLoop, result Result) {
	if c.polls[p.key.ID] != p {
		return
	}
	delete(c.polls, p.key.ID)
	c.tracker.Remove(p.key.Kind, p.key.ID)
	if result.Attempts == 0 {
		result.Attempts = p.attempts()
	}
	c.results[p.key.ID] = result
}

func kindNames(kinds []state.Kind) []string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return names
}
