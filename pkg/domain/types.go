package domain

// Test identifiers

// TestID is the host runner's stable identifier for a single test
// (e.g. "pkg/store/store_test.go::TestPut").
type TestID = string

// Sizes

// TestSize is a test size category. The zero value means "unsized".
type TestSize string

const (
	SizeSmall  TestSize = "small"
	SizeMedium TestSize = "medium"
	SizeLarge  TestSize = "large"
	SizeXLarge TestSize = "xlarge"
)

// Sizes lists all categories in ascending order.
var Sizes = []TestSize{SizeSmall, SizeMedium, SizeLarge, SizeXLarge}

// MarkerName is the declarative marker name for this size.
func (s TestSize) MarkerName() string {
	return string(s)
}

// Name is the upper-case display name, e.g. "SMALL".
func (s TestSize) Name() string {
	switch s {
	case SizeSmall:
		return "SMALL"
	case SizeMedium:
		return "MEDIUM"
	case SizeLarge:
		return "LARGE"
	case SizeXLarge:
		return "XLARGE"
	}
	return ""
}

// Description is the human text used when registering the marker.
func (s TestSize) Description() string {
	return "mark test as " + s.Name() + " size"
}

// Label is the suffix shown in test output, e.g. "[SMALL]".
func (s TestSize) Label() string {
	return "[" + s.Name() + "]"
}

// Rank orders sizes for upgrade/downgrade comparisons.
func (s TestSize) Rank() int {
	switch s {
	case SizeSmall:
		return 0
	case SizeMedium:
		return 1
	case SizeLarge:
		return 2
	case SizeXLarge:
		return 3
	}
	return -1
}

// Valid reports whether s is one of the four size categories.
func (s TestSize) Valid() bool {
	return s.Rank() >= 0
}

// ParseSize maps a marker name to its size. ok is false for unknown names.
func ParseSize(marker string) (TestSize, bool) {
	for _, s := range Sizes {
		if string(s) == marker {
			return s, true
		}
	}
	return "", false
}

// Enforcement

// EnforcementMode governs how a denied access is handled.
type EnforcementMode string

const (
	ModeOff    EnforcementMode = "OFF"
	ModeWarn   EnforcementMode = "WARN"
	ModeStrict EnforcementMode = "STRICT"
)

// Blocker lifecycle

// BlockerState is the two-state lifecycle shared by every resource blocker.
type BlockerState string

const (
	BlockerInactive BlockerState = "INACTIVE"
	BlockerActive   BlockerState = "ACTIVE"
)

// Violations & observations

// ViolationType categorizes a hermeticity violation.
type ViolationType string

const (
	ViolationNetwork    ViolationType = "network"
	ViolationFilesystem ViolationType = "filesystem"
	ViolationProcess    ViolationType = "process"
	ViolationDatabase   ViolationType = "database"
	ViolationSleep      ViolationType = "sleep"
)

// ViolationTypes lists all violation categories.
var ViolationTypes = []ViolationType{
	ViolationNetwork,
	ViolationFilesystem,
	ViolationProcess,
	ViolationDatabase,
	ViolationSleep,
}

// ResourceType categorizes an observed resource access in suggestion mode.
type ResourceType string

const (
	ResourceNetwork    ResourceType = "network"
	ResourceFilesystem ResourceType = "filesystem"
	ResourceSubprocess ResourceType = "subprocess"
	ResourceDatabase   ResourceType = "database"
	ResourceSleep      ResourceType = "sleep"
)

// Filesystem

// FilesystemOperation is the kind of filesystem access attempted.
type FilesystemOperation string

const (
	OpRead   FilesystemOperation = "read"
	OpWrite  FilesystemOperation = "write"
	OpCreate FilesystemOperation = "create"
	OpStat   FilesystemOperation = "stat"
)
