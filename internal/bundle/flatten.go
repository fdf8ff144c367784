package bundle

import (
	"path"
	"strings"
)

// Flatten collapses a slash-separated object key to its last parent segment
// plus file name, so at most one directory level survives locally and inside
// the archive. Single-segment keys pass through unchanged. Distinct keys that
// share their last two segments collide; last writer wins.
func Flatten(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	if len(parts) > 1 {
		return path.Join(parts[len(parts)-2], parts[len(parts)-1])
	}
	return parts[0]
}
