package blocker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// isPathUnderAllowed reports whether path equals, or is a descendant of,
// any allowed path. Both sides are resolved to cleaned absolute form first
// so that relative segments and trailing separators cannot dodge the check.
func isPathUnderAllowed(path string, allowed []string) bool {
	resolved := canonical(path)
	for _, a := range allowed {
		base := canonical(a)
		if resolved == base {
			return true
		}
		rel, err := filepath.Rel(base, resolved)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// OperationFromFlag derives the filesystem operation kind from os.OpenFile
// flags: exclusive-create wins, then any write-capable flag, else read.
func OperationFromFlag(flag int) domain.FilesystemOperation {
	if flag&os.O_EXCL != 0 {
		return domain.OpCreate
	}
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND) != 0 {
		return domain.OpWrite
	}
	return domain.OpRead
}
