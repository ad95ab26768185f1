package analysis

import (
	"strings"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// TargetKeyword is the substring that identifies the stress column.
const TargetKeyword = "stress"

// ResolveTarget returns the first column, in table order, whose canonical name
// contains TargetKeyword. When several columns match, the earliest wins and no
// further disambiguation is attempted. ok is false when nothing matches; that
// is an expected state, not an error.
func ResolveTarget(t *dataset.Table) (name string, ok bool) {
	if t == nil {
		return "", false
	}
	for _, c := range t.Columns() {
		if strings.Contains(c, TargetKeyword) {
			return c, true
		}
	}
	return "", false
}
