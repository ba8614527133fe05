package blocker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/seam"
	"github.com/hermetic-ci/hermetic/pkg/violations"
)

// PatchingNetworkBlocker is the production network adapter. It swaps the
// seam's dial entry point for a wrapper that checks the target host
// against the allow-list before letting the connection proceed.
type PatchingNetworkBlocker struct {
	core

	pmu      sync.Mutex
	original seam.DialFunc
	allowed  []string
	attempts []ConnectionAttempt
}

// NewPatchingNetworkBlocker creates an inactive network blocker.
func NewPatchingNetworkBlocker() *PatchingNetworkBlocker {
	return &PatchingNetworkBlocker{core: newCore()}
}

func (b *PatchingNetworkBlocker) Activate(size domain.TestSize, mode domain.EnforcementMode, allowedHosts []string) error {
	if err := b.beginActivate(size, mode); err != nil {
		return err
	}

	b.pmu.Lock()
	b.allowed = append([]string(nil), allowedHosts...)
	b.original = seam.SwapDial(b.patchedDial())
	b.pmu.Unlock()
	return nil
}

func (b *PatchingNetworkBlocker) Deactivate() error {
	if err := b.beginDeactivate(); err != nil {
		return err
	}

	b.pmu.Lock()
	if b.original != nil {
		seam.SwapDial(b.original)
		b.original = nil
	}
	b.pmu.Unlock()
	return nil
}

// Reset restores the original dial entry point if one was captured and
// forces the blocker back to INACTIVE. Legal from any state; never fails.
func (b *PatchingNetworkBlocker) Reset() {
	b.pmu.Lock()
	if b.original != nil {
		seam.SwapDial(b.original)
		b.original = nil
	}
	b.allowed = nil
	b.attempts = nil
	b.pmu.Unlock()

	b.clear()
}

// CheckConnectionAllowed decides whether the host may be dialed under the
// current test size. The port does not participate in the decision; it is
// recorded for diagnostics only.
func (b *PatchingNetworkBlocker) CheckConnectionAllowed(host string, port int) (bool, error) {
	if err := b.requireActive("check_connection_allowed"); err != nil {
		return false, err
	}
	size, _, testID := b.snapshot()

	allowed := true
	if size == domain.SizeSmall {
		allowed = false
		b.pmu.Lock()
		for _, h := range b.allowed {
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

// OnViolation handles a denied connection per the enforcement mode.
func (b *PatchingNetworkBlocker) OnViolation(host string, port int, testID domain.TestID) error {
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

// Attempts returns the recorded connection attempts.
func (b *PatchingNetworkBlocker) Attempts() []ConnectionAttempt {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	out := make([]ConnectionAttempt, len(b.attempts))
	copy(out, b.attempts)
	return out
}

func (b *PatchingNetworkBlocker) patchedDial() seam.DialFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port := splitHostPort(address)

		allowed, err := b.CheckConnectionAllowed(host, port)
		if err != nil {
			return nil, err
		}
		if !allowed {
			_, _, testID := b.snapshot()
			if err := b.OnViolation(host, port, testID); err != nil {
				return nil, err
			}
		}

		b.pmu.Lock()
		original := b.original
		b.pmu.Unlock()
		if original == nil {
			original = seam.DefaultDial()
		}
		return original(ctx, network, address)
	}
}

// splitHostPort tolerates bare hosts and unparseable ports; an address
// without a port reports port 0.
func splitHostPort(address string) (string, int) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return address, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
