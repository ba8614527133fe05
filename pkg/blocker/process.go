package blocker

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/seam"
	"github.com/hermetic-ci/hermetic/pkg/violations"
)

// PatchingProcessBlocker is the production process adapter. It swaps the
// seam's spawn entry point for a wrapper that denies every spawn for small
// tests; there is no allow-list for processes.
type PatchingProcessBlocker struct {
	core

	pmu      sync.Mutex
	original seam.SpawnFunc
	attempts []SpawnAttempt
}

// NewPatchingProcessBlocker creates an inactive process blocker.
func NewPatchingProcessBlocker() *PatchingProcessBlocker {
	return &PatchingProcessBlocker{core: newCore()}
}

func (b *PatchingProcessBlocker) Activate(size domain.TestSize, mode domain.EnforcementMode) error {
	if err := b.beginActivate(size, mode); err != nil {
		return err
	}

	b.pmu.Lock()
	b.original = seam.SwapSpawn(b.patchedSpawn())
	b.pmu.Unlock()
	return nil
}

func (b *PatchingProcessBlocker) Deactivate() error {
	if err := b.beginDeactivate(); err != nil {
		return err
	}

	b.pmu.Lock()
	if b.original != nil {
		seam.SwapSpawn(b.original)
		b.original = nil
	}
	b.pmu.Unlock()
	return nil
}

// Reset restores the original spawn entry point if one was captured and
// forces the blocker back to INACTIVE. Legal from any state; never fails.
func (b *PatchingProcessBlocker) Reset() {
	b.pmu.Lock()
	if b.original != nil {
		seam.SwapSpawn(b.original)
		b.original = nil
	}
	b.attempts = nil
	b.pmu.Unlock()

	b.clear()
}

// CheckSpawnAllowed decides whether the command may be started under the
// current test size. Small tests may never spawn.
func (b *PatchingProcessBlocker) CheckSpawnAllowed(command string, args []string) (bool, error) {
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
		Method:  "seam.Spawn",
	})
	b.pmu.Unlock()
	return allowed, nil
}

// OnViolation handles a denied spawn per the enforcement mode.
func (b *PatchingProcessBlocker) OnViolation(command string, args []string, testID domain.TestID, method string) error {
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

// Attempts returns the recorded spawn attempts.
func (b *PatchingProcessBlocker) Attempts() []SpawnAttempt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]SpawnAttempt, len(b.attempts))
	copy(out, b.attempts)
	return out
}

func (b *PatchingProcessBlocker) patchedSpawn() seam.SpawnFunc {
	return func(name string, args ...string) (*exec.Cmd, error) {
		allowed, err := b.CheckSpawnAllowed(name, args)
		if err != nil {
			return nil, err
		}
		if !allowed {
			_, _, testID := b.snapshot()
			if err := b.OnViolation(name, args, testID, "seam.Spawn"); err != nil {
				return nil, err
			}
		}

		b.pmu.Lock()
		original := b.original
		b.pmu.Unlock()
		if original == nil {
			original = seam.DefaultSpawn()
		}
		return original(name, args...)
	}
}
