package blocker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/violations"
)

// Fake adapters implement the same ports as the patching adapters without
// touching the seam. They record activation parameters and attempts so
// consumers of the ports can be tested deterministically.

type FakeFilesystemBlocker struct {
	core

	pmu          sync.Mutex
	AllowedPaths []string
	attempts     []AccessAttempt

	ActivateCalls   int
	DeactivateCalls int
	ResetCalls      int
}

func NewFakeFilesystemBlocker() *FakeFilesystemBlocker {
	return &FakeFilesystemBlocker{core: newCore()}
}

func (b *FakeFilesystemBlocker) Activate(size domain.TestSize, mode domain.EnforcementMode, allowedPaths []string) error {
	if err := b.beginActivate(size, mode); err != nil {
		return err
	}
	b.pmu.Lock()
	b.AllowedPaths = append([]string(nil), allowedPaths...)
	b.ActivateCalls++
	b.pmu.Unlock()
	return nil
}

func (b *FakeFilesystemBlocker) Deactivate() error {
	if err := b.beginDeactivate(); err != nil {
		return err
	}
	b.pmu.Lock()
	b.DeactivateCalls++
	b.pmu.Unlock()
	return nil
}

func (b *FakeFilesystemBlocker) Reset() {
	b.pmu.Lock()
	b.ResetCalls++
	b.AllowedPaths = nil
	b.attempts = nil
	b.pmu.Unlock()
	b.clear()
}

func (b *FakeFilesystemBlocker) CheckAccessAllowed(path string, op domain.FilesystemOperation) (bool, error) {
	if err := b.requireActive("check_access_allowed"); err != nil {
		return false, err
	}
	size, _, testID := b.snapshot()

	allowed := true
	if size == domain.SizeSmall {
		b.pmu.Lock()
		allowed = isPathUnderAllowed(path, b.AllowedPaths)
		b.pmu.Unlock()
	}

	b.pmu.Lock()
	b.attempts = append(b.attempts, AccessAttempt{Path: path, Operation: op, TestID: testID, Allowed: allowed})
	b.pmu.Unlock()
	return allowed, nil
}

func (b *FakeFilesystemBlocker) OnViolation(path string, op domain.FilesystemOperation, testID domain.TestID) error {
	if err := b.requireActive("on_violation"); err != nil {
		return err
	}
	size, mode, _ := b.snapshot()
	switch mode {
	case domain.ModeStrict:
		return violations.NewFilesystemAccessError(size, testID, path, op)
	case domain.ModeWarn:
		b.warn(fmt.Sprintf("Filesystem access violation: %s on %s in test %s", op, path, testID))
	}
	return nil
}

func (b *FakeFilesystemBlocker) Attempts() []AccessAttempt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]AccessAttempt, len(b.attempts))
	copy(out, b.attempts)
	return out
}

type FakeNetworkBlocker struct {
	core

	pmu          sync.Mutex
	AllowedHosts []string
	attempts     []ConnectionAttempt

	ActivateCalls   int
	DeactivateCalls int
	ResetCalls      int
}

func NewFakeNetworkBlocker() *FakeNetworkBlocker {
	return &FakeNetworkBlocker{core: newCore()}
}

func (b *FakeNetworkBlocker) Activate(size domain.TestSize, mode domain.EnforcementMode, allowedHosts []string) error {
	if err := b.beginActivate(size, mode); err != nil {
		return err
	}
	b.pmu.Lock()
	b.AllowedHosts = append([]string(nil), allowedHosts...)
	b.ActivateCalls++
	b.pmu.Unlock()
	return nil
}

func (b *FakeNetworkBlocker) Deactivate() error {
	if err := b.beginDeactivate(); err != nil {
		return err
	}
	b.pmu.Lock()
	b.DeactivateCalls++
	b.pmu.Unlock()
	return nil
}

func (b *FakeNetworkBlocker) Reset() {
	b.pmu.Lock()
	b.ResetCalls++
	b.AllowedHosts = nil
	b.attempts = nil
	b.pmu.Unlock()
	b.clear()
}

func (b *FakeNetworkBlocker) CheckConnectionAllowed(host string, port int) (bool, error) {
	if err := b.requireActive("check_connection_allowed"); err != nil {
		return false, err
	}
	size, _, testID := b.snapshot()

	allowed := true
	if size == domain.SizeSmall {
		allowed = false
		b.pmu.Lock()
		for _, h := range b.AllowedHosts {
			if strings.EqualFold(h, host) {
				allowed = true
				break
			}
		}
		b.pmu.Unlock()
	}

	b.pmu.Lock()
	b.attempts = append(b.attempts, ConnectionAttempt{Host: host, Port: port, TestID: testID, Allowed: allowed})
	b.pmu.Unlock()
	return allowed, nil
}

func (b *FakeNetworkBlocker) OnViolation(host string, port int, testID domain.TestID) error {
	if err := b.requireActive("on_violation"); err != nil {
		return err
	}
	size, mode, _ := b.snapshot()
	switch mode {
	case domain.ModeStrict:
		return violations.NewNetworkAccessError(size, testID, host, port)
	case domain.ModeWarn:
		b.warn(fmt.Sprintf("Network access violation: connect to %s:%d in test %s", host, port, testID))
	}
	return nil
}

func (b *FakeNetworkBlocker) Attempts() []ConnectionAttempt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]ConnectionAttempt, len(b.attempts))
	copy(out, b.attempts)
	return out
}

type FakeProcessBlocker struct {
	core

	pmu      sync.Mutex
	attempts []SpawnAttempt

	ActivateCalls   int
	DeactivateCalls int
	ResetCalls      int
}

func NewFakeProcessBlocker() *FakeProcessBlocker {
	return &FakeProcessBlocker{core: newCore()}
}

func (b *FakeProcessBlocker) Activate(size domain.TestSize, mode domain.EnforcementMode) error {
	if err := b.beginActivate(size, mode); err != nil {
		return err
	}
	b.pmu.Lock()
	b.ActivateCalls++
	b.pmu.Unlock()
	return nil
}

func (b *FakeProcessBlocker) Deactivate() error {
	if err := b.beginDeactivate(); err != nil {
		return err
	}
	b.pmu.Lock()
	b.DeactivateCalls++
	b.pmu.Unlock()
	return nil
}

func (b *FakeProcessBlocker) Reset() {
	b.pmu.Lock()
	b.ResetCalls++
	b.attempts = nil
	b.pmu.Unlock()
	b.clear()
}

func (b *FakeProcessBlocker) CheckSpawnAllowed(command string, args []string) (bool, error) {
	if err := b.requireActive("check_spawn_allowed"); err != nil {
		return false, err
	}
	size, _, testID := b.snapshot()

	allowed := size != domain.SizeSmall

	b.pmu.Lock()
	b.attempts = append(b.attempts, SpawnAttempt{
		Command: command,
		Args:    append([]string(nil), args...),
		TestID:  testID,
		Allowed: allowed,
		Method:  "fake",
	})
	b.pmu.Unlock()
	return allowed, nil
}

func (b *FakeProcessBlocker) OnViolation(command string, args []string, testID domain.TestID, method string) error {
	if err := b.requireActive("on_violation"); err != nil {
		return err
	}
	size, mode, _ := b.snapshot()
	switch mode {
	case domain.ModeStrict:
		return violations.NewSubprocessError(size, testID, command, args, method)
	case domain.ModeWarn:
		b.warn(fmt.Sprintf("Process spawn violation: %s of %s in test %s",
			method, strings.TrimSpace(command+" "+strings.Join(args, " ")), testID))
	}
	return nil
}

func (b *FakeProcessBlocker) Attempts() []SpawnAttempt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]SpawnAttempt, len(b.attempts))
	copy(out, b.attempts)
	return out
}

// Interface conformance.
var (
	_ Filesystem = (*PatchingFilesystemBlocker)(nil)
	_ Filesystem = (*FakeFilesystemBlocker)(nil)
	_ Network    = (*PatchingNetworkBlocker)(nil)
	_ Network    = (*FakeNetworkBlocker)(nil)
	_ Process    = (*PatchingProcessBlocker)(nil)
	_ Process    = (*FakeProcessBlocker)(nil)
)
