package blocker

import (
	"fmt"
	"os"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/seam"
	"github.com/hermetic-ci/hermetic/pkg/violations"
)

// PatchingFilesystemBlocker is the production filesystem adapter. On
// activation it swaps the seam's open entry point for a checking wrapper;
// on deactivation it restores the exact captured original. Only one
// captured original exists per activation, so repeated activate/deactivate
// cycles cannot accumulate wrapper-of-wrapper chains.
type PatchingFilesystemBlocker struct {
	core

	pmu      sync.Mutex
	original seam.OpenFunc
	allowed  []string
	attempts []AccessAttempt
}

// NewPatchingFilesystemBlocker creates an inactive filesystem blocker.
func NewPatchingFilesystemBlocker() *PatchingFilesystemBlocker {
	return &PatchingFilesystemBlocker{core: newCore()}
}

func (b *PatchingFilesystemBlocker) Activate(size domain.TestSize, mode domain.EnforcementMode, allowedPaths []string) error {
	if err := b.beginActivate(size, mode); err != nil {
		return err
	}

	b.pmu.Lock()
	b.allowed = append([]string(nil), allowedPaths...)
	b.original = seam.SwapOpen(b.patchedOpen())
	b.pmu.Unlock()
	return nil
}

func (b *PatchingFilesystemBlocker) Deactivate() error {
	if err := b.beginDeactivate(); err != nil {
		return err
	}

	b.pmu.Lock()
	if b.original != nil {
		seam.SwapOpen(b.original)
		b.original = nil
	}
	b.pmu.Unlock()
	return nil
}

// Reset restores the original entry point if one was captured and forces
// the blocker back to INACTIVE. Legal from any state; never fails.
func (b *PatchingFilesystemBlocker) Reset() {
	b.pmu.Lock()
	if b.original != nil {
		seam.SwapOpen(b.original)
		b.original = nil
	}
	b.allowed = nil
	b.attempts = nil
	b.pmu.Unlock()

	b.clear()
}

// CheckAccessAllowed decides whether the path may be touched under the
// current test size. Every call is recorded as an attempt.
func (b *PatchingFilesystemBlocker) CheckAccessAllowed(path string, op domain.FilesystemOperation) (bool, error) {
	if err := b.requireActive("check_access_allowed"); err != nil {
		return false, err
	}
	size, _, testID := b.snapshot()

	allowed := true
	if size == domain.SizeSmall {
		b.pmu.Lock()
		allowed = isPathUnderAllowed(path, b.allowed)
		b.pmu.Unlock()
	}

	b.pmu.Lock()
	b.attempts = append(b.attempts, AccessAttempt{Path: path, Operation: op, TestID: testID, Allowed: allowed})
	b.pmu.Unlock()
	return allowed, nil
}

// OnViolation handles a denied access per the enforcement mode: STRICT
// returns the typed violation error, WARN appends to the warning log,
// OFF is a no-op.
func (b *PatchingFilesystemBlocker) OnViolation(path string, op domain.FilesystemOperation, testID domain.TestID) error {
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

// Attempts returns the recorded access attempts.
func (b *PatchingFilesystemBlocker) Attempts() []AccessAttempt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]AccessAttempt, len(b.attempts))
	copy(out, b.attempts)
	return out
}

func (b *PatchingFilesystemBlocker) patchedOpen() seam.OpenFunc {
	return func(name string, flag int, perm os.FileMode) (*os.File, error) {
		op := OperationFromFlag(flag)

		allowed, err := b.CheckAccessAllowed(name, op)
		if err != nil {
			return nil, err
		}
		if !allowed {
			_, _, testID := b.snapshot()
			if err := b.OnViolation(name, op, testID); err != nil {
				return nil, err
			}
		}

		b.pmu.Lock()
		original := b.original
		b.pmu.Unlock()
		if original == nil {
			// Reset raced the call; fall through to the real implementation.
			original = seam.DefaultOpen()
		}
		return original(name, flag, perm)
	}
}
