package mcphost

import (
	"net/url"
	"path/filepath"
)

// NormalizeRoots turns filesystem paths into the Root entries exposed to the
// peer: each path becomes an absolute file:// URI named after its base
// element. Relative paths are resolved against the current directory; paths
// that cannot be resolved are kept as given rather than dropped.
func NormalizeRoots(paths []string) []Root {
	roots := make([]Root, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}

		u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
		roots = append(roots, Root{
			URI:  u.String(),
			Name: filepath.Base(abs),
		})
	}
	return roots
}
