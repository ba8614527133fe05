package violations

import (
	"sort"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/telemetry"
)

// Summary holds per-type violation counts. It is a value type; Total is
// derived, never stored.
type Summary struct {
	Network    int `json:"network"`
	Filesystem int `json:"filesystem"`
	Process    int `json:"process"`
	Database   int `json:"database"`
	Sleep      int `json:"sleep"`
}

// Total is the sum across all violation types.
func (s Summary) Total() int {
	return s.Network + s.Filesystem + s.Process + s.Database + s.Sleep
}

// Tracker aggregates hermeticity violations across a session: an ordered
// list per test plus running per-type counts. One tracker per worker
// process; cross-worker aggregation belongs to the host runner.
type Tracker struct {
	mu      sync.Mutex
	byTest  map[domain.TestID][]domain.ViolationType
	counts  map[domain.ViolationType]int
	metrics telemetry.Metrics
}

// NewTracker creates an empty tracker. metrics may be nil.
func NewTracker(metrics telemetry.Metrics) *Tracker {
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Tracker{
		byTest:  make(map[domain.TestID][]domain.ViolationType),
		counts:  make(map[domain.ViolationType]int),
		metrics: metrics,
	}
}

// Record appends a violation for the given test.
func (t *Tracker) Record(testID domain.TestID, vt domain.ViolationType) {
	t.mu.Lock()
	t.byTest[testID] = append(t.byTest[testID], vt)
	t.counts[vt]++
	t.mu.Unlock()

	t.metrics.IncCounter("hermetic_violations_total", 1,
		telemetry.Label{Key: "type", Value: string(vt)})
}

// Summary returns the per-type counts as an immutable snapshot.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Network:    t.counts[domain.ViolationNetwork],
		Filesystem: t.counts[domain.ViolationFilesystem],
		Process:    t.counts[domain.ViolationProcess],
		Database:   t.counts[domain.ViolationDatabase],
		Sleep:      t.counts[domain.ViolationSleep],
	}
}

// TestViolations returns the ordered violations recorded for one test.
func (t *Tracker) TestViolations(testID domain.TestID) []domain.ViolationType {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.ViolationType, len(t.byTest[testID]))
	copy(out, t.byTest[testID])
	return out
}

// TestIDs returns the tests with recorded violations, sorted.
func (t *Tracker) TestIDs() []domain.TestID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]domain.TestID, 0, len(t.byTest))
	for id := range t.byTest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot captures the tracker for persistence.
func (t *Tracker) Snapshot() SessionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	byTest := make(map[domain.TestID][]domain.ViolationType, len(t.byTest))
	for id, vs := range t.byTest {
		cp := make([]domain.ViolationType, len(vs))
		copy(cp, vs)
		byTest[id] = cp
	}
	return SessionRecord{
		Summary: Summary{
			Network:    t.counts[domain.ViolationNetwork],
			Filesystem: t.counts[domain.ViolationFilesystem],
			Process:    t.counts[domain.ViolationProcess],
			Database:   t.counts[domain.ViolationDatabase],
			Sleep:      t.counts[domain.ViolationSleep],
		},
		ByTest: byTest,
	}
}

// Reset clears all recorded violations and counts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTest = make(map[domain.TestID][]domain.ViolationType)
	t.counts = make(map[domain.ViolationType]int)
}
