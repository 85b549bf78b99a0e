package filesys

import (
	"fmt"
	"strings"
)

// Split divides an absolute path at its last '/' into the parent
// directory path and the final segment, which keeps its leading '/' so
// it can be used directly as a directory entry name.
//
//	Split("/t0/bb/f1") == "/t0/bb", "/f1"
//	Split("/f1")       == "/", "/f1"
func Split(path string) (string, string, error) {
	if err := checkPath(path); err != nil {
		return "", "", err
	}
	last := strings.LastIndexByte(path, '/')
	parent, name := path[:last], path[last:]
	if parent == "" {
		parent = "/"
	}
	return parent, name, nil
}

func checkPath(path string) error {
	if len(path) > MaxPathLen {
		return fmt.Errorf("path longer than %d bytes: %w", MaxPathLen, ErrBoundsExceeded)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	if depth := PathDepth(path); depth > MaxDirDepth {
		return fmt.Errorf("path has %d segments, limit %d: %w", depth, MaxDirDepth, ErrBoundsExceeded)
	}
	return nil
}

// PathDepth counts the segments of an absolute path. "/" has none and a
// trailing '/' does not start a new segment.
func PathDepth(path string) int {
	depth := strings.Count(path, "/")
	if strings.HasSuffix(path, "/") {
		depth--
	}
	return depth
}
