// Package discovery resolves the effective size category for a test item
// and detects marker inheritance conflicts across class hierarchies.
package discovery

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// SizeMarker is a size annotation attached to a class, method or item.
// Timeout overrides the category time limit for this test; Override
// suppresses inheritance-conflict warnings.
type SizeMarker struct {
	Timeout  *float64
	Override bool
}

// ClassInfo is one entry of a test's class hierarchy: the class name plus
// the size markers declared directly on that class. Hierarchies are ordered
// immediate class first, most distant ancestor last.
type ClassInfo struct {
	Name    string
	Markers map[string]SizeMarker
}

// TestItem is the host-side view of a single test. The host runner adapter
// implements it; the discovery service never introspects the runner itself.
type TestItem interface {
	NodeID() domain.TestID
	Marker(name string) (SizeMarker, bool)
	ClassHierarchy() []ClassInfo
	MethodMarkers() map[string]SizeMarker
}

// WarningSink receives non-fatal discovery warnings.
type WarningSink interface {
	Warn(message string)
}

// MultipleMarkersError is raised when a test carries more than one size
// marker. This is a configuration mistake and fails regardless of
// enforcement mode.
type MultipleMarkersError struct {
	Markers []string
}

func (e *MultipleMarkersError) Error() string {
	return fmt.Sprintf("Test cannot have multiple size markers: %s", strings.Join(e.Markers, ", "))
}

// markerConflict holds one detected inheritance conflict.
type markerConflict struct {
	childClass   string
	childMarker  string
	parentClass  string
	parentMarker string
}

// Service resolves size markers for test items. It remembers which test
// ids it has already warned about, so repeated discovery of the same item
// (multi-process runners re-collecting) warns at most once.
type Service struct {
	warnings WarningSink

	mu              sync.Mutex
	warnedMissing   map[domain.TestID]struct{}
	warnedConflicts map[domain.TestID]struct{}
}

// NewService creates a discovery service emitting warnings to sink.
func NewService(sink WarningSink) *Service {
	return &Service{
		warnings:        sink,
		warnedMissing:   make(map[domain.TestID]struct{}),
		warnedConflicts: make(map[domain.TestID]struct{}),
	}
}

// FindTestSize resolves the size marker on item. With no markers it warns
// once per test id and reports ok=false. With more than one marker it
// returns MultipleMarkersError naming every marker found. With exactly one
// it runs conflict detection and returns the size.
func (s *Service) FindTestSize(item TestItem) (domain.TestSize, bool, error) {
	var found []domain.TestSize
	for _, size := range domain.Sizes {
		if _, ok := item.Marker(size.MarkerName()); ok {
			found = append(found, size)
		}
	}

	if len(found) == 0 {
		s.mu.Lock()
		if _, warned := s.warnedMissing[item.NodeID()]; !warned {
			s.warnedMissing[item.NodeID()] = struct{}{}
			s.mu.Unlock()
			s.warnings.Warn(fmt.Sprintf("Test has no size marker: %s", item.NodeID()))
		} else {
			s.mu.Unlock()
		}
		return "", false, nil
	}

	if len(found) > 1 {
		names := make([]string, len(found))
		for i, size := range found {
			names[i] = size.MarkerName()
		}
		return "", false, &MultipleMarkersError{Markers: names}
	}

	effective := found[0]
	s.checkInheritanceConflicts(item, effective)
	return effective, true, nil
}

// Timeout returns the custom time limit declared on the item's size
// marker, if any. Only the first size marker carrying a timeout is
// consulted, iterating in size order.
func (s *Service) Timeout(item TestItem) (float64, bool) {
	for _, size := range domain.Sizes {
		marker, ok := item.Marker(size.MarkerName())
		if !ok {
			continue
		}
		if marker.Timeout != nil {
			return *marker.Timeout, true
		}
	}
	return 0, false
}

func (s *Service) checkInheritanceConflicts(item TestItem, effective domain.TestSize) {
	s.mu.Lock()
	_, warned := s.warnedConflicts[item.NodeID()]
	s.mu.Unlock()
	if warned {
		return
	}

	hierarchy := item.ClassHierarchy()

	s.checkMultipleBaseConflicts(item, hierarchy, effective)
	s.checkChildOverrideConflicts(item, hierarchy)
	s.checkMethodOverrideConflicts(item, hierarchy)
}

// checkMultipleBaseConflicts warns when the ancestors of the immediate
// class carry two or more distinct size markers. An explicit marker with
// override on the immediate class suppresses the warning.
func (s *Service) checkMultipleBaseConflicts(item TestItem, hierarchy []ClassInfo, effective domain.TestSize) {
	if len(hierarchy) < 2 {
		return
	}

	baseSizes := map[string]string{}
	for _, class := range hierarchy[1:] {
		for name := range class.Markers {
			if !isSizeMarker(name) {
				continue
			}
			if _, seen := baseSizes[name]; !seen {
				baseSizes[name] = class.Name
			}
		}
	}
	if len(baseSizes) < 2 {
		return
	}
	if hasExplicitOverride(hierarchy[0].Markers) {
		return
	}

	names := make([]string, 0, len(baseSizes))
	for name := range baseSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s (@%s)", baseSizes[name], name)
	}

	s.emitConflict(item, fmt.Sprintf(
		"Marker inheritance conflict in %s: Class inherits from multiple base classes "+
			"with different size markers (%s). Using %s. "+
			"Add an explicit @%s marker to the class or use override=true to suppress this warning.",
		item.NodeID(), strings.Join(parts, ", "), effective.MarkerName(), effective.MarkerName()))
}

// checkChildOverrideConflicts warns when the first marked class in the
// hierarchy declares a different size than a more distant marked ancestor.
func (s *Service) checkChildOverrideConflicts(item TestItem, hierarchy []ClassInfo) {
	if len(hierarchy) < 2 {
		return
	}

	childClass, childMarker, ok := firstClassWithMarker(hierarchy)
	if !ok {
		return
	}

	conflict, ok := findParentConflict(hierarchy, childClass, childMarker)
	if !ok {
		return
	}
	if hasExplicitOverride(hierarchy[0].Markers) {
		return
	}

	s.emitConflict(item, fmt.Sprintf(
		"Marker override in %s: %s has @%s but inherits from %s with @%s. "+
			"Use @%s(override=true) to indicate this is intentional.",
		item.NodeID(), conflict.childClass, conflict.childMarker,
		conflict.parentClass, conflict.parentMarker, conflict.childMarker))
}

// checkMethodOverrideConflicts warns when the method's own size marker
// differs from the nearest class-level marker. Override on the method
// marker itself suppresses the warning.
func (s *Service) checkMethodOverrideConflicts(item TestItem, hierarchy []ClassInfo) {
	methodMarkers := item.MethodMarkers()

	var methodMarker string
	var methodObj SizeMarker
	for _, size := range domain.Sizes {
		if m, ok := methodMarkers[size.MarkerName()]; ok {
			methodMarker = size.MarkerName()
			methodObj = m
			break
		}
	}
	if methodMarker == "" {
		return
	}

	var classMarker string
	for _, class := range hierarchy {
		if name, ok := firstSizeMarker(class.Markers); ok {
			classMarker = name
			break
		}
	}
	if classMarker == "" || classMarker == methodMarker {
		return
	}
	if methodObj.Override {
		return
	}

	s.emitConflict(item, fmt.Sprintf(
		"Marker override in %s: Method has @%s but class has @%s. "+
			"Use @%s(override=true) to indicate this is intentional.",
		item.NodeID(), methodMarker, classMarker, methodMarker))
}

func (s *Service) emitConflict(item TestItem, message string) {
	s.mu.Lock()
	if _, warned := s.warnedConflicts[item.NodeID()]; warned {
		s.mu.Unlock()
		return
	}
	s.warnedConflicts[item.NodeID()] = struct{}{}
	s.mu.Unlock()
	s.warnings.Warn(message)
}

func isSizeMarker(name string) bool {
	size, ok := domain.ParseSize(name)
	return ok && size.MarkerName() == name
}

func firstSizeMarker(markers map[string]SizeMarker) (string, bool) {
	for _, size := range domain.Sizes {
		if _, ok := markers[size.MarkerName()]; ok {
			return size.MarkerName(), true
		}
	}
	return "", false
}

func firstClassWithMarker(hierarchy []ClassInfo) (string, string, bool) {
	for _, class := range hierarchy {
		if name, ok := firstSizeMarker(class.Markers); ok {
			return class.Name, name, true
		}
	}
	return "", "", false
}

// findParentConflict scans past the first marked class for an ancestor
// carrying a different size marker.
func findParentConflict(hierarchy []ClassInfo, childClass, childMarker string) (markerConflict, bool) {
	foundChild := false
	for _, class := range hierarchy {
		name, hasMarker := firstSizeMarker(class.Markers)
		if !foundChild {
			if hasMarker {
				foundChild = true
			}
			continue
		}
		if hasMarker && name != childMarker {
			return markerConflict{
				childClass:   childClass,
				childMarker:  childMarker,
				parentClass:  class.Name,
				parentMarker: name,
			}, true
		}
	}
	return markerConflict{}, false
}

// hasExplicitOverride reports whether any size marker in the set carries
// an override. Only the immediate class's markers are ever consulted.
func hasExplicitOverride(markers map[string]SizeMarker) bool {
	for _, size := range domain.Sizes {
		if m, ok := markers[size.MarkerName()]; ok && m.Override {
			return true
		}
	}
	return false
}
