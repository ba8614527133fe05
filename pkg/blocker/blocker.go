// Package blocker implements the resource blockers that enforce per-size
// isolation rules. Each resource type has a port (interface), a production
// adapter that patches the corresponding seam entry point, and a fake
// adapter for deterministic unit testing of consumers.
package blocker

import (
	"fmt"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// StateError indicates a blocker lifecycle precondition violation:
// activating an active blocker, or using an inactive one. These are
// integration bugs in the host runner and are never suppressed.
type StateError struct {
	Op    string
	State domain.BlockerState
	Want  domain.BlockerState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("blocker %s: state is %s, must be %s", e.Op, e.State, e.Want)
}

// Filesystem is the port for filesystem access control.
type Filesystem interface {
	Activate(size domain.TestSize, mode domain.EnforcementMode, allowedPaths []string) error
	Deactivate() error
	Reset()
	State() domain.BlockerState
	SetTestID(id domain.TestID)
	CheckAccessAllowed(path string, op domain.FilesystemOperation) (bool, error)
	OnViolation(path string, op domain.FilesystemOperation, testID domain.TestID) error
	Warnings() []string
}

// Network is the port for network access control.
type Network interface {
	Activate(size domain.TestSize, mode domain.EnforcementMode, allowedHosts []string) error
	Deactivate() error
	Reset()
	State() domain.BlockerState
	SetTestID(id domain.TestID)
	CheckConnectionAllowed(host string, port int) (bool, error)
	OnViolation(host string, port int, testID domain.TestID) error
	Warnings() []string
}

// Process is the port for process spawn control.
type Process interface {
	Activate(size domain.TestSize, mode domain.EnforcementMode) error
	Deactivate() error
	Reset()
	State() domain.BlockerState
	SetTestID(id domain.TestID)
	CheckSpawnAllowed(command string, args []string) (bool, error)
	OnViolation(command string, args []string, testID domain.TestID, method string) error
	Warnings() []string
}

// Attempt records. Immutable once created; used by tests and analytics,
// never by the enforcement decision itself.

type AccessAttempt struct {
	Path      string
	Operation domain.FilesystemOperation
	TestID    domain.TestID
	Allowed   bool
}

type ConnectionAttempt struct {
	Host    string
	Port    int
	TestID  domain.TestID
	Allowed bool
}

type SpawnAttempt struct {
	Command string
	Args    []string
	TestID  domain.TestID
	Allowed bool
	Method  string
}

// core carries the lifecycle state and activation parameters shared by
// every blocker implementation.
type core struct {
	mu       sync.Mutex
	state    domain.BlockerState
	size     domain.TestSize
	mode     domain.EnforcementMode
	testID   domain.TestID
	warnings []string
}

func newCore() core {
	return core{state: domain.BlockerInactive}
}

func (c *core) State() domain.BlockerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *core) SetTestID(id domain.TestID) {
	c.mu.Lock()
	c.testID = id
	c.mu.Unlock()
}

func (c *core) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// beginActivate transitions INACTIVE -> ACTIVE. The caller must hold no lock.
func (c *core) beginActivate(size domain.TestSize, mode domain.EnforcementMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.BlockerInactive {
		return &StateError{Op: "activate", State: c.state, Want: domain.BlockerInactive}
	}
	c.state = domain.BlockerActive
	c.size = size
	c.mode = mode
	return nil
}

// beginDeactivate transitions ACTIVE -> INACTIVE.
func (c *core) beginDeactivate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.BlockerActive {
		return &StateError{Op: "deactivate", State: c.state, Want: domain.BlockerActive}
	}
	c.state = domain.BlockerInactive
	return nil
}

func (c *core) requireActive(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.BlockerActive {
		return &StateError{Op: op, State: c.state, Want: domain.BlockerActive}
	}
	return nil
}

// clear forces the core back to its initial state. Used by Reset; never fails.
func (c *core) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.BlockerInactive
	c.size = ""
	c.mode = ""
	c.testID = ""
	c.warnings = nil
}

func (c *core) snapshot() (domain.TestSize, domain.EnforcementMode, domain.TestID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.mode, c.testID
}

func (c *core) warn(msg string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, msg)
	c.mu.Unlock()
}
