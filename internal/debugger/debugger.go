// Package debugger runs a program under the tracer and turns the raw trace
// into the result a step-through viewer consumes.
//
// A Debugger runs one program at a time. Concurrent calls to Execute wait
// for the active run to finish.
package debugger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yousuf/stepbyte/internal/complexity"
	"github.com/yousuf/stepbyte/internal/config"
	"github.com/yousuf/stepbyte/internal/filter"
	"github.com/yousuf/stepbyte/internal/simplify"
	"github.com/yousuf/stepbyte/internal/trace"
	"github.com/yousuf/stepbyte/internal/traceback"
)

var (
	// ErrEmptySource is returned for a program with no code.
	ErrEmptySource = errors.New("no code provided")
	// ErrUnsupportedLanguage is returned for languages the tracer does not
	// understand.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNotImplemented is returned for languages that are recognized but
	// not traced yet.
	ErrNotImplemented = errors.New("language not implemented")
)

// Languages lists the accepted language identifiers; the first is canonical.
var Languages = []string{"python", "starlark"}

// CheckLanguage reports whether programs in lang can be traced. An empty
// lang means the default language.
func CheckLanguage(lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return nil
	}
	for _, l := range Languages {
		if lang == l {
			return nil
		}
	}
	if lang == "javascript" {
		return errors.Wrapf(ErrNotImplemented, "%s debugging", lang)
	}
	return errors.Wrapf(ErrUnsupportedLanguage, "%q", lang)
}

// Result is everything a viewer needs to step through one run.
type Result struct {
	DebugStates   []simplify.State    `json:"debugStates"`
	CallHierarchy []trace.CallRecord  `json:"callHierarchy"`
	Complexity    complexity.Estimate `json:"complexity"`
	Outcome       trace.Outcome       `json:"outcome"`
	Stats         Stats               `json:"stats"`
}

// Stats counts states at each pipeline stage.
type Stats struct {
	RawStates        int   `json:"rawStates"`
	FilteredStates   int   `json:"filteredStates"`
	SimplifiedStates int   `json:"simplifiedStates"`
	Calls            int   `json:"calls"`
	Steps            int   `json:"steps"`
	DurationMs       int64 `json:"durationMs"`
}

// Debugger owns the single-run lock and the collaborators of a run.
type Debugger struct {
	cfg       config.DebuggerConfig
	sem       *semaphore.Weighted
	estimator *complexity.Cache
	mapper    *traceback.Mapper
	metrics   *Metrics
	logger    *slog.Logger
	tracer    oteltrace.Tracer
}

// New creates a Debugger. A nil estimator analyses every program afresh and
// nil metrics are created unregistered.
func New(cfg config.DebuggerConfig, estimator *complexity.Cache, metrics *Metrics, logger *slog.Logger) *Debugger {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "main.py"
	}
	return &Debugger{
		cfg:       cfg,
		sem:       semaphore.NewWeighted(1),
		estimator: estimator,
		mapper:    traceback.NewMapper(),
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("github.com/yousuf/stepbyte/internal/debugger"),
	}
}

// Estimate analyses source without running it.
func (d *Debugger) Estimate(ctx context.Context, source string) complexity.Estimate {
	_, span := d.tracer.Start(ctx, "complexity.Analyze")
	defer span.End()
	return d.estimator.Analyze(source)
}

// Execute traces source with stdin as its standard input. Failures of the
// program are part of the Result; an error means the run could not be
// carried out at all.
func (d *Debugger) Execute(ctx context.Context, source, stdin string) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, "debugger.Execute")
	defer span.End()

	res, err := d.execute(ctx, source, stdin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("stepbyte.outcome", string(res.Outcome)),
		attribute.Int("stepbyte.states", res.Stats.SimplifiedStates),
	)
	return res, nil
}

func (d *Debugger) execute(ctx context.Context, source, stdin string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "waiting for the active run")
	}
	defer d.sem.Release(1)

	start := time.Now()
	path, err := d.stage(source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("failed to remove staged program", "path", path, "error", err)
		}
	}()

	staged, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading staged program")
	}
	d.mapper.Register(path, d.cfg.DisplayName, staged)
	defer d.mapper.Forget(path)

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if d.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		run *trace.Run
		est complexity.Estimate
	)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		est = d.Estimate(gctx, source)
		return nil
	})
	g.Go(func() error {
		_, span := d.tracer.Start(gctx, "trace.Execute")
		defer span.End()
		var err error
		run, err = trace.Execute(gctx, staged, stdin, trace.Options{
			Filename:        path,
			DisplayName:     d.cfg.DisplayName,
			LibraryPatterns: d.cfg.LibraryPatterns,
			MaxSteps:        d.cfg.MaxSteps,
			MaxDepth:        d.cfg.MaxDepth,
			MaxOutputBytes:  d.cfg.MaxOutputBytes,
			Traceback:       d.mapper.Format,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "tracing program")
	}

	_, span := d.tracer.Start(ctx, "pipeline.Reduce")
	filtered := filter.States(run.States)
	states := simplify.States(filtered)
	span.End()

	res := &Result{
		DebugStates:   states,
		CallHierarchy: run.Calls,
		Complexity:    est,
		Outcome:       run.Outcome,
		Stats: Stats{
			RawStates:        len(run.States),
			FilteredStates:   len(filtered),
			SimplifiedStates: len(states),
			Calls:            len(run.Calls),
			Steps:            run.Steps,
			DurationMs:       time.Since(start).Milliseconds(),
		},
	}
	d.observe(res, time.Since(start))
	return res, nil
}

// stage writes source to a fresh file so frames report a real location.
func (d *Debugger) stage(source string) (string, error) {
	f, err := os.CreateTemp(d.cfg.StagingDir, "stepbyte-*.py")
	if err != nil {
		return "", errors.Wrap(err, "staging program")
	}
	path := f.Name()
	_, werr := f.WriteString(source)
	cerr := f.Close()
	if err := errors.CombineErrors(werr, cerr); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "staging program")
	}
	return path, nil
}

func (d *Debugger) observe(res *Result, elapsed time.Duration) {
	d.metrics.Runs.WithLabelValues(string(res.Outcome)).Inc()
	d.metrics.Duration.Observe(elapsed.Seconds())
	d.metrics.States.WithLabelValues("raw").Observe(float64(res.Stats.RawStates))
	d.metrics.States.WithLabelValues("filtered").Observe(float64(res.Stats.FilteredStates))
	d.metrics.States.WithLabelValues("simplified").Observe(float64(res.Stats.SimplifiedStates))
	d.metrics.Steps.Observe(float64(res.Stats.Steps))

	d.logger.Info("run finished",
		"outcome", res.Outcome,
		"raw_states", res.Stats.RawStates,
		"filtered_states", res.Stats.FilteredStates,
		"simplified_states", res.Stats.SimplifiedStates,
		"calls", res.Stats.Calls,
		"steps", res.Stats.Steps,
		"duration", elapsed,
	)
}
