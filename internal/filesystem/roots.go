package filesystem

import (
	"path/filepath"
	"strings"
)

// Within reports whether path is dir or lies below it. Both must be clean
// absolute paths.
func Within(dir, path string) bool {
	if path == dir {
		return true
	}
	if dir == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, dir+"/")
}

// RootFor returns the root containing path. When roots nest, the longest wins.
func RootFor(roots []string, path string) (string, bool) {
	path = filepath.Clean(path)

	best := ""
	for _, root := range roots {
		if Within(root, path) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

// LinkBelow returns the first component of dir below root that is a symlink,
// or "" when there is none. Walks never descend symlinked directories, so a
// path through one names bytes that are indexed under their real path.
func LinkBelow(root, dir string) string {
	if dir == root || !Within(root, dir) {
		return ""
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return ""
	}
	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		if IsSymlink(cur) {
			return cur
		}
	}
	return ""
}
