package rtree

import (
	"fmt"
	"io"
	"strings"
)

// debug utilities

// Dump writes an indented rendition of the whole tree to w, one line per
// node and per leaf entry. Intended for tests and troubleshooting.
func (t *Tree) Dump(w io.Writer) error {
	var walk func(pos int64, level, depth int) error
	walk = func(pos int64, level, depth int) error {
		var n Node
		if err := t.store.Read(pos, level, &n); err != nil {
			return err
		}
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%slevel %d pos %d (%d branches)\n", indent, n.Level, pos, len(n.Branches))
		for _, b := range n.Branches {
			if n.Level > 0 {
				fmt.Fprintf(w, "%s  branch %s -> pos %d\n", indent, b.Rect, b.Child.Pos())
				if err := walk(b.Child.Pos(), level-1, depth+1); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "%s  entry %s id %d\n", indent, b.Rect, b.Child.ID())
			}
		}
		return nil
	}
	return walk(t.rootPos, t.rootLevel, 0)
}
