// Package seam holds the process-global I/O entry points the test harness
// routes through. Each entry point is a swappable function with the real
// implementation as its default. Blockers install wrappers here and must
// restore the exact previous function on deactivation; Reset puts every
// entry point back to its default from any state.
//
// The seam is the single place where interception happens. Harness code
// must call seam.Open / seam.Dial / seam.Spawn instead of the os, net and
// exec packages directly, otherwise blocking is invisible to it.
package seam

import (
	"context"
	"net"
	"os"
	"os/exec"
	"reflect"
	"sync"
)

// OpenFunc opens a file the way os.OpenFile does.
type OpenFunc func(name string, flag int, perm os.FileMode) (*os.File, error)

// DialFunc opens a network connection the way net.Dialer.DialContext does.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// SpawnFunc starts a command and returns the running process handle.
type SpawnFunc func(name string, args ...string) (*exec.Cmd, error)

func defaultOpen(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func defaultDial(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

func defaultSpawn(name string, args ...string) (*exec.Cmd, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

var (
	mu      sync.RWMutex
	openFn  OpenFunc  = defaultOpen
	dialFn  DialFunc  = defaultDial
	spawnFn SpawnFunc = defaultSpawn
)

// Open routes a file open through the current entry point.
func Open(name string, flag int, perm os.FileMode) (*os.File, error) {
	mu.RLock()
	fn := openFn
	mu.RUnlock()
	return fn(name, flag, perm)
}

// Dial routes a network connect through the current entry point.
func Dial(ctx context.Context, network, address string) (net.Conn, error) {
	mu.RLock()
	fn := dialFn
	mu.RUnlock()
	return fn(ctx, network, address)
}

// Spawn routes a process start through the current entry point.
func Spawn(name string, args ...string) (*exec.Cmd, error) {
	mu.RLock()
	fn := spawnFn
	mu.RUnlock()
	return fn(name, args...)
}

// SwapOpen installs fn as the open entry point and returns the previous one.
// A nil fn installs the default.
func SwapOpen(fn OpenFunc) OpenFunc {
	if fn == nil {
		fn = defaultOpen
	}
	mu.Lock()
	prev := openFn
	openFn = fn
	mu.Unlock()
	return prev
}

// SwapDial installs fn as the dial entry point and returns the previous one.
func SwapDial(fn DialFunc) DialFunc {
	if fn == nil {
		fn = defaultDial
	}
	mu.Lock()
	prev := dialFn
	dialFn = fn
	mu.Unlock()
	return prev
}

// SwapSpawn installs fn as the spawn entry point and returns the previous one.
func SwapSpawn(fn SpawnFunc) SpawnFunc {
	if fn == nil {
		fn = defaultSpawn
	}
	mu.Lock()
	prev := spawnFn
	spawnFn = fn
	mu.Unlock()
	return prev
}

// CurrentOpen returns the installed open entry point.
func CurrentOpen() OpenFunc {
	mu.RLock()
	defer mu.RUnlock()
	return openFn
}

// CurrentDial returns the installed dial entry point.
func CurrentDial() DialFunc {
	mu.RLock()
	defer mu.RUnlock()
	return dialFn
}

// CurrentSpawn returns the installed spawn entry point.
func CurrentSpawn() SpawnFunc {
	mu.RLock()
	defer mu.RUnlock()
	return spawnFn
}

// DefaultOpen returns the real open implementation.
func DefaultOpen() OpenFunc { return defaultOpen }

// DefaultDial returns the real dial implementation.
func DefaultDial() DialFunc { return defaultDial }

// DefaultSpawn returns the real spawn implementation.
func DefaultSpawn() SpawnFunc { return defaultSpawn }

// Reset restores every entry point to its default. Safe from any state.
func Reset() {
	mu.Lock()
	openFn = defaultOpen
	dialFn = defaultDial
	spawnFn = defaultSpawn
	mu.Unlock()
}

// Same reports whether two entry-point functions are the identical function
// value. Go functions are not comparable, so identity is checked through
// the code pointer; this is what "restored exactly" means for the seam.
func Same(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
