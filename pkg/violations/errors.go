package violations

import (
	"fmt"
	"strings"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

const rule = "============================================================"

// HermeticityViolationError is the base error for resource isolation
// violations. Concrete violations embed it and fill in kind-specific
// details and remediation.
type HermeticityViolationError struct {
	TestSize    domain.TestSize
	TestID      domain.TestID
	Kind        string
	Details     string
	Remediation []string
	DocRef      string
}

func (e *HermeticityViolationError) Error() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(rule + "\n")
	b.WriteString("HermeticityViolationError\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Test: %s\n", e.TestID)
	fmt.Fprintf(&b, "Category: %s\n", e.TestSize.Name())
	fmt.Fprintf(&b, "Violation: %s\n", e.Kind)
	b.WriteString("\n")
	b.WriteString("Details:\n")
	fmt.Fprintf(&b, "  %s\n", e.Details)
	b.WriteString("\n")

	if len(e.Remediation) > 0 {
		fmt.Fprintf(&b, "%s tests have restricted resource access. Options:\n", capitalize(e.TestSize))
		for i, suggestion := range e.Remediation {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, suggestion)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Documentation: See %s\n", e.DocRef)
	b.WriteString(rule)
	return b.String()
}

func capitalize(s domain.TestSize) string {
	m := s.MarkerName()
	if m == "" {
		return ""
	}
	return strings.ToUpper(m[:1]) + m[1:]
}

// NetworkAccessError is raised when a test opens an unauthorized network
// connection.
type NetworkAccessError struct {
	HermeticityViolationError
	Host string
	Port int
}

// NewNetworkAccessError builds a network violation for the given target.
func NewNetworkAccessError(size domain.TestSize, testID domain.TestID, host string, port int) *NetworkAccessError {
	e := &NetworkAccessError{Host: host, Port: port}
	e.TestSize = size
	e.TestID = testID
	e.Kind = "Network access attempted"
	e.Details = fmt.Sprintf("Attempted connection to: %s:%d", host, port)
	e.Remediation = networkRemediation(size)
	e.DocRef = "docs/isolation.md#network"
	return e
}

func networkRemediation(size domain.TestSize) []string {
	switch size {
	case domain.SizeSmall:
		return []string{
			"Mock the network call with httptest or a recorded transport",
			"Use dependency injection to provide a fake client",
			"Re-mark the test as medium (if network is required)",
		}
	case domain.SizeMedium:
		return []string{
			"Use localhost for the service (e.g. run a local mock server)",
			"Mock the external service call",
			"Re-mark the test as large (if external network is required)",
		}
	}
	return nil
}

// FilesystemAccessError is raised when a test touches a path outside its
// allow-list.
type FilesystemAccessError struct {
	HermeticityViolationError
	Path      string
	Operation domain.FilesystemOperation
}

// NewFilesystemAccessError builds a filesystem violation for the given path
// and operation.
func NewFilesystemAccessError(size domain.TestSize, testID domain.TestID, path string, op domain.FilesystemOperation) *FilesystemAccessError {
	e := &FilesystemAccessError{Path: path, Operation: op}
	e.TestSize = size
	e.TestID = testID
	e.Kind = "Filesystem access attempted"
	e.Details = fmt.Sprintf("Attempted %s on: %s", op, path)
	e.Remediation = filesystemRemediation(size, op)
	e.DocRef = "docs/isolation.md#filesystem"
	return e
}

func filesystemRemediation(size domain.TestSize, op domain.FilesystemOperation) []string {
	if size != domain.SizeSmall {
		return nil
	}
	suggestions := []string{
		"Use the framework temp directory (t.TempDir) for scratch files",
		"Inject an in-memory filesystem (fstest.MapFS) instead of touching disk",
		"Use bytes.Buffer or strings.Reader for in-memory file-like data",
	}
	if op == domain.OpRead || op == domain.OpStat {
		suggestions = append(suggestions, "Embed fixture data with go:embed or string constants")
	}
	return append(suggestions, "Re-mark the test as medium (if filesystem access is required)")
}

// SubprocessError is raised when a test spawns an unauthorized process.
type SubprocessError struct {
	HermeticityViolationError
	Command     string
	CommandArgs []string
	Method      string
}

// NewSubprocessError builds a process violation. method names the spawn
// entry point that was intercepted.
func NewSubprocessError(size domain.TestSize, testID domain.TestID, command string, args []string, method string) *SubprocessError {
	e := &SubprocessError{Command: command, CommandArgs: args, Method: method}
	e.TestSize = size
	e.TestID = testID
	e.Kind = "Subprocess spawn attempted"
	e.Details = fmt.Sprintf("Attempted %s of: %s %s", method, command, strings.Join(args, " "))
	e.Remediation = subprocessRemediation(size)
	e.DocRef = "docs/isolation.md#process"
	return e
}

func subprocessRemediation(size domain.TestSize) []string {
	if size != domain.SizeSmall {
		return nil
	}
	return []string{
		"Fake the command runner behind an interface",
		"Test the logic that builds the command instead of running it",
		"Re-mark the test as medium (if spawning a process is required)",
	}
}
