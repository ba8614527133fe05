// Package session orchestrates the per-test lifecycle: marker discovery,
// blocker activation, timing, violation tracking and end-of-run analytics.
package session

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/hermetic-ci/hermetic/pkg/analytics"
	"github.com/hermetic-ci/hermetic/pkg/blocker"
	"github.com/hermetic-ci/hermetic/pkg/config"
	"github.com/hermetic-ci/hermetic/pkg/discovery"
	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/telemetry"
	"github.com/hermetic-ci/hermetic/pkg/timing"
	"github.com/hermetic-ci/hermetic/pkg/violations"
)

// Session owns the state for one test run in one worker process. Workers
// never share a session; cross-worker aggregation happens in the report
// merger.
type Session struct {
	ID string

	cfg       *config.Config
	discovery *discovery.Service
	fs        blocker.Filesystem
	network   blocker.Network
	proc      blocker.Process
	tracker   *violations.Tracker
	collector *analytics.Collector
	limits    timing.TimeLimitConfig
	logger    telemetry.Logger
	metrics   telemetry.Metrics

	timers map[domain.TestID]*timing.WallTimer
	sizes  map[domain.TestID]domain.TestSize
	counts analytics.Counts
}

// Option configures a Session.
type Option func(*Session)

// WithBlockers swaps in alternative blocker implementations, used by
// tests to avoid patching the process-global seam.
func WithBlockers(fs blocker.Filesystem, network blocker.Network, proc blocker.Process) Option {
	return func(s *Session) {
		s.fs = fs
		s.network = network
		s.proc = proc
	}
}

// WithTelemetry sets the logger and metrics sinks.
func WithTelemetry(logger telemetry.Logger, metrics telemetry.Metrics) Option {
	return func(s *Session) {
		s.logger = logger
		s.metrics = metrics
	}
}

// New creates a session for the given configuration.
func New(cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		cfg:       cfg,
		fs:        blocker.NewPatchingFilesystemBlocker(),
		network:   blocker.NewPatchingNetworkBlocker(),
		proc:      blocker.NewPatchingProcessBlocker(),
		collector: analytics.NewCollector(),
		limits:    cfg.Limits,
		logger:    &telemetry.NoopLogger{},
		metrics:   &telemetry.NoopMetrics{},
		timers:    make(map[domain.TestID]*timing.WallTimer),
		sizes:     make(map[domain.TestID]domain.TestSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = violations.NewTracker(s.metrics)
	s.discovery = discovery.NewService(&discovery.LoggerWarningSink{Logger: s.logger})
	return s
}

// Discovery exposes the marker resolution service.
func (s *Session) Discovery() *discovery.Service { return s.discovery }

// Collector exposes the suggestion collector.
func (s *Session) Collector() *analytics.Collector { return s.collector }

// Tracker exposes the violation tracker.
func (s *Session) Tracker() *violations.Tracker { return s.tracker }

// Counts returns the distribution counts accumulated so far.
func (s *Session) Counts() analytics.Counts { return s.counts }

// Setup prepares one test: resolves its size, activates the blockers for
// that size and starts its timer. Tests without a size marker run
// unenforced but still feed the suggestion collector.
func (s *Session) Setup(ctx context.Context, item discovery.TestItem, tempDir string) error {
	id := item.NodeID()

	size, ok, err := s.discovery.FindTestSize(item)
	if err != nil {
		return err
	}

	s.collector.RecordCurrentSize(id, size)
	s.sizes[id] = size

	timer := timing.NewWallTimer()
	s.timers[id] = timer

	if !ok {
		timer.Start()
		return nil
	}

	s.counts.Add(size)

	fsMode, netMode, procMode := s.cfg.EffectiveModes()

	allowedPaths := append([]string(nil), s.cfg.AllowedPaths...)
	if tempDir != "" {
		allowedPaths = append(allowedPaths, tempDir)
	}

	if err := s.fs.Activate(size, fsMode, allowedPaths); err != nil {
		return fmt.Errorf("activate filesystem blocker: %w", err)
	}
	if err := s.network.Activate(size, netMode, s.cfg.AllowedHosts); err != nil {
		s.fs.Reset()
		return fmt.Errorf("activate network blocker: %w", err)
	}
	if err := s.proc.Activate(size, procMode); err != nil {
		s.fs.Reset()
		s.network.Reset()
		return fmt.Errorf("activate process blocker: %w", err)
	}

	s.fs.SetTestID(id)
	s.network.SetTestID(id)
	s.proc.SetTestID(id)

	s.logger.Info(ctx, "test setup", map[string]any{
		"test_id": id,
		"size":    size.Name(),
	})

	timer.Start()
	return nil
}

// Teardown finishes one test: stops its timer, harvests attempts and
// warnings from the blockers, resets them unconditionally, and validates
// the duration against the category limit or the test's baseline.
// The blockers are reset even when validation fails.
func (s *Session) Teardown(ctx context.Context, item discovery.TestItem) error {
	id := item.NodeID()
	size, sized := s.sizes[id]
	if size == "" {
		sized = false
	}

	var duration float64
	if timer, ok := s.timers[id]; ok {
		if err := timer.Stop(); err == nil {
			if d, derr := timer.Duration(); derr == nil {
				duration = d
				s.collector.RecordExecutionTime(id, d)
				s.metrics.ObserveHistogram("hermetic_test_duration_seconds", d,
					telemetry.Label{Key: "size", Value: size.MarkerName()})
			}
		}
	}

	s.harvest(ctx, id)
	s.sampleResources()

	s.fs.Reset()
	s.network.Reset()
	s.proc.Reset()

	if !sized {
		return nil
	}

	var baseline *float64
	if timeout, ok := s.discovery.Timeout(item); ok {
		baseline = &timeout
	}
	return s.limits.ValidateWithBaseline(size, duration, baseline, id)
}

// harvest converts denied attempts into violation records and suggestion
// observations, and forwards blocker warnings to the logger.
func (s *Session) harvest(ctx context.Context, id domain.TestID) {
	if fs, ok := s.fs.(interface{ Attempts() []blocker.AccessAttempt }); ok {
		for _, a := range fs.Attempts() {
			s.collector.RecordObservation(a.TestID, domain.ResourceFilesystem,
				fmt.Sprintf("%s on %s", a.Operation, a.Path))
			if !a.Allowed {
				s.tracker.Record(a.TestID, domain.ViolationFilesystem)
			}
		}
	}
	if network, ok := s.network.(interface{ Attempts() []blocker.ConnectionAttempt }); ok {
		for _, a := range network.Attempts() {
			s.collector.RecordObservation(a.TestID, domain.ResourceNetwork,
				fmt.Sprintf("Connection to %s:%d", a.Host, a.Port))
			if !a.Allowed {
				s.tracker.Record(a.TestID, domain.ViolationNetwork)
			}
		}
	}
	if proc, ok := s.proc.(interface{ Attempts() []blocker.SpawnAttempt }); ok {
		for _, a := range proc.Attempts() {
			s.collector.RecordObservation(a.TestID, domain.ResourceSubprocess,
				fmt.Sprintf("Spawn of %s", a.Command))
			if !a.Allowed {
				s.tracker.Record(a.TestID, domain.ViolationProcess)
			}
		}
	}

	for _, b := range []interface{ Warnings() []string }{s.fs, s.network, s.proc} {
		for _, w := range b.Warnings() {
			s.logger.Warn(ctx, w, map[string]any{"test_id": id})
		}
	}
}

// sampleResources records the worker's memory and CPU usage after a test.
func (s *Session) sampleResources() {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		s.metrics.SetGauge("hermetic_worker_rss_bytes", float64(mem.RSS))
	}
	if cpu, err := p.CPUPercent(); err == nil {
		s.metrics.SetGauge("hermetic_worker_cpu_percent", cpu)
	}
}

// Finish validates the suite distribution and returns the suggestions
// derived from everything observed during the run.
func (s *Session) Finish(ctx context.Context) ([]analytics.TestSuggestion, error) {
	svc := analytics.NewValidationService(s.cfg.DistributionMode)
	err := svc.Validate(s.counts, &loggerSink{ctx: ctx, logger: s.logger})

	var suggestions []analytics.TestSuggestion
	if len(s.cfg.Triggers) > 0 {
		classifier, cerr := analytics.NewRuleClassifier(s.cfg.Triggers)
		if cerr == nil {
			suggestions = analytics.SuggestWithRules(s.collector, classifier)
		} else {
			suggestions = s.collector.GenerateSuggestions()
		}
	} else {
		suggestions = s.collector.GenerateSuggestions()
	}
	return suggestions, err
}

// Persist stores the session's violation snapshot.
func (s *Session) Persist(ctx context.Context, store violations.Store) error {
	return store.Save(ctx, s.ID, s.tracker.Snapshot())
}

type loggerSink struct {
	ctx    context.Context
	logger telemetry.Logger
}

func (l *loggerSink) Warn(message string) {
	l.logger.Warn(l.ctx, message, nil)
}
