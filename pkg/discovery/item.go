package discovery

import (
	"context"

	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/telemetry"
)

// Item is a plain in-memory TestItem. Host runner adapters can construct
// it directly; it is also the fixture used throughout the test suite.
type Item struct {
	ID        domain.TestID
	Markers   map[string]SizeMarker
	Hierarchy []ClassInfo
	Method    map[string]SizeMarker
}

func (i *Item) NodeID() domain.TestID { return i.ID }

func (i *Item) Marker(name string) (SizeMarker, bool) {
	m, ok := i.Markers[name]
	return m, ok
}

func (i *Item) ClassHierarchy() []ClassInfo { return i.Hierarchy }

func (i *Item) MethodMarkers() map[string]SizeMarker {
	if i.Method == nil {
		return map[string]SizeMarker{}
	}
	return i.Method
}

var _ TestItem = (*Item)(nil)

// FakeWarningSink collects warnings for assertions.
type FakeWarningSink struct {
	Messages []string
}

func (s *FakeWarningSink) Warn(message string) {
	s.Messages = append(s.Messages, message)
}

// LoggerWarningSink forwards discovery warnings to the structured logger.
type LoggerWarningSink struct {
	Logger telemetry.Logger
}

func (s *LoggerWarningSink) Warn(message string) {
	s.Logger.Warn(context.Background(), message, nil)
}

// Suite base classes mirror the size categories so a test class can
// inherit its marker instead of declaring one.
var (
	SmallSuite  = ClassInfo{Name: "SmallSuite", Markers: map[string]SizeMarker{"small": {}}}
	MediumSuite = ClassInfo{Name: "MediumSuite", Markers: map[string]SizeMarker{"medium": {}}}
	LargeSuite  = ClassInfo{Name: "LargeSuite", Markers: map[string]SizeMarker{"large": {}}}
	XLargeSuite = ClassInfo{Name: "XLargeSuite", Markers: map[string]SizeMarker{"xlarge": {}}}
)
