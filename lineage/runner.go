package lineage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/evomesh/bus"
	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/evolution"
	"github.com/hupe1980/evomesh/logging"
)

// Defaults applied by New when options are zero.
const (
	DefaultMaxConcurrent = 3
	DefaultTimeout       = 30 * time.Second
)

// forwarded are the event names bridged from private lineage channels to the
// caller's progress channel.
var forwarded = []core.EventName{
	core.EvolutionProgress,
	core.TranscendenceComplete,
	core.TranscendenceAborted,
	core.ExternalizationBlocked,
}

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxConcurrent bounds how many lineages run simultaneously (batch size).
	MaxConcurrent int
	// Timeout is the per-lineage deadline.
	Timeout time.Duration
	// Progress, when set, receives forwarded events from every lineage's
	// private channel. Sends are non-blocking: a slow consumer drops events
	// rather than stalling a lineage.
	Progress chan<- core.Event
	// ConfigureMachine customizes each lineage's machine (gate, pipeline,
	// generator, repository) before it starts.
	ConfigureMachine func(cfg core.EvolutionConfig, o *evolution.Options)
	// Logger receives batch diagnostics.
	Logger logging.Logger
}

// Runner executes independent evolution lineages in isolated batches.
type Runner struct {
	maxConcurrent    int
	timeout          time.Duration
	progress         chan<- core.Event
	configureMachine func(cfg core.EvolutionConfig, o *evolution.Options)
	logger           logging.Logger
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrent: DefaultMaxConcurrent,
		Timeout:       DefaultTimeout,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Runner{
		maxConcurrent:    opts.MaxConcurrent,
		timeout:          opts.Timeout,
		progress:         opts.Progress,
		configureMachine: opts.ConfigureMachine,
		logger:           opts.Logger,
	}
}

// RunLineages partitions organisms into batches of MaxConcurrent, runs each
// batch concurrently and collects a settlement for every lineage before the
// next batch starts. The aggregate result count always equals the organism
// count regardless of individual outcomes.
func (r *Runner) RunLineages(ctx context.Context, organisms []core.EvolutionConfig) []core.LineageResult {
	results := make([]core.LineageResult, 0, len(organisms))

	for start := 0; start < len(organisms); start += r.maxConcurrent {
		end := start + r.maxConcurrent
		if end > len(organisms) {
			end = len(organisms)
		}
		batch := organisms[start:end]

		r.logger.Debug("starting lineage batch of %d (%d/%d settled)", len(batch), len(results), len(organisms))

		results = append(results, r.runBatch(ctx, batch)...)
	}

	return results
}

func (r *Runner) runBatch(ctx context.Context, batch []core.EvolutionConfig) []core.LineageResult {
	var wg sync.WaitGroup
	resultCh := make(chan core.LineageResult, len(batch))

	for _, cfg := range batch {
		wg.Add(1)
		go func(cfg core.EvolutionConfig) {
			defer wg.Done()
			resultCh <- r.runLineage(ctx, cfg)
		}(cfg)
	}

	wg.Wait()
	close(resultCh)

	results := make([]core.LineageResult, 0, len(batch))
	for res := range resultCh {
		results = append(results, res)
	}
	return results
}

// runLineage executes one isolated lineage racing the per-lineage timeout.
// The machine goroutine writes into a buffered channel so an overrunning
// lineage is abandoned without leaking a blocked sender.
func (r *Runner) runLineage(ctx context.Context, cfg core.EvolutionConfig) core.LineageResult {
	cfg.Normalize()

	channel := bus.New()
	if r.progress != nil {
		for _, name := range forwarded {
			channel.Subscribe(name, r.forward)
		}
	}

	machine := evolution.New(cfg, func(o *evolution.Options) {
		o.Channel = channel
		o.Logger = r.logger
		if r.configureMachine != nil {
			r.configureMachine(cfg, o)
		}
	})

	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	settled := make(chan core.LineageResult, 1)
	start := time.Now()

	go func() { settled <- machine.Run(lctx) }()

	select {
	case res := <-settled:
		if !res.Success && lctx.Err() == context.DeadlineExceeded {
			res.Outcome = core.OutcomeTimeout
			res.Err = fmt.Errorf("lineage %s timed out after %v", cfg.Name, r.timeout)
		}
		return res
	case <-time.After(r.timeout + 100*time.Millisecond):
		// The machine ignored its context; record the timeout and move on.
		r.logger.Warn("lineage %s exceeded its %v timeout, abandoning", cfg.Name, r.timeout)
		return core.LineageResult{
			Organism:   cfg.Name,
			Success:    false,
			Outcome:    core.OutcomeTimeout,
			FinalState: core.NewOrganismState(cfg.Name, cfg.InitialFitness, cfg.InitialConsciousness, cfg.InitialStability),
			Duration:   time.Since(start),
			Err:        fmt.Errorf("lineage %s timed out after %v", cfg.Name, r.timeout),
		}
	}
}

func (r *Runner) forward(ev core.Event) {
	select {
	case r.progress <- ev:
	default:
	}
}
