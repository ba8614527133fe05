package violations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

func TestNetworkAccessError_Message(t *testing.T) {
	err := NewNetworkAccessError(domain.SizeSmall, "pkg/api/api_test.go::TestFetchUser", "api.example.com", 443)

	msg := err.Error()
	assert.Contains(t, msg, "HermeticityViolationError")
	assert.Contains(t, msg, "Test: pkg/api/api_test.go::TestFetchUser")
	assert.Contains(t, msg, "Category: SMALL")
	assert.Contains(t, msg, "Violation: Network access attempted")
	assert.Contains(t, msg, "Attempted connection to: api.example.com:443")
	assert.Contains(t, msg, "Small tests have restricted resource access. Options:")
	assert.Contains(t, msg, "1. Mock the network call")
	assert.Contains(t, msg, "Documentation: See docs/isolation.md#network")
	assert.Equal(t, "api.example.com", err.Host)
	assert.Equal(t, 443, err.Port)
}

func TestNetworkAccessError_MediumRemediation(t *testing.T) {
	err := NewNetworkAccessError(domain.SizeMedium, "t::x", "api.example.com", 80)

	msg := err.Error()
	assert.Contains(t, msg, "Medium tests have restricted resource access. Options:")
	assert.Contains(t, msg, "localhost")
}

func TestNetworkAccessError_LargeHasNoRemediation(t *testing.T) {
	err := NewNetworkAccessError(domain.SizeLarge, "t::x", "api.example.com", 80)

	assert.NotContains(t, err.Error(), "Options:")
}

func TestFilesystemAccessError_Message(t *testing.T) {
	err := NewFilesystemAccessError(domain.SizeSmall, "pkg/io/io_test.go::TestSave", "/etc/passwd", domain.OpRead)

	msg := err.Error()
	assert.Contains(t, msg, "Violation: Filesystem access attempted")
	assert.Contains(t, msg, "Attempted read on: /etc/passwd")
	assert.Contains(t, msg, "t.TempDir")
	// Read operations also suggest embedding fixture data.
	assert.Contains(t, msg, "go:embed")
}

func TestFilesystemAccessError_WriteOmitsEmbedHint(t *testing.T) {
	err := NewFilesystemAccessError(domain.SizeSmall, "t::x", "/var/out.txt", domain.OpWrite)

	assert.NotContains(t, err.Error(), "go:embed")
}

func TestSubprocessError_Message(t *testing.T) {
	err := NewSubprocessError(domain.SizeSmall, "t::x", "docker", []string{"run", "image"}, "seam.Spawn")

	msg := err.Error()
	assert.Contains(t, msg, "Violation: Subprocess spawn attempted")
	assert.Contains(t, msg, "Attempted seam.Spawn of: docker run image")
	assert.Equal(t, "docker", err.Command)
	assert.Equal(t, []string{"run", "image"}, err.CommandArgs)
	assert.Equal(t, "seam.Spawn", err.Method)
}

func TestViolationError_SectionLayout(t *testing.T) {
	err := NewNetworkAccessError(domain.SizeSmall, "t::x", "h", 1)

	lines := strings.Split(err.Error(), "\n")
	// Leading blank line, then the 60-char rule.
	assert.Equal(t, "", lines[0])
	assert.Equal(t, strings.Repeat("=", 60), lines[1])
	assert.Equal(t, strings.Repeat("=", 60), lines[len(lines)-1])
}
