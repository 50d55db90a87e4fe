package state

import (
	"slices"
	"strings"
)

// MatchGlob reports whether the dotted state name matches glob. "*" matches
// exactly one segment; "**" at the start or end matches any number of them.
func MatchGlob(glob, name string) bool {
	globSegs := strings.Split(glob, ".")
	segs := strings.Split(name, ".")

	for i, g := range globSegs {
		if g != "*" {
			continue
		}
		for len(segs) <= i {
			segs = append(segs, "")
		}
		segs[i] = "*"
	}

	if globSegs[0] == "**" {
		idx := -1
		if len(globSegs) > 1 {
			idx = slices.Index(segs, globSegs[1])
		}
		if idx < 0 {
			idx = len(segs) - 1
		}
		segs = append([]string{"**"}, segs[idx:]...)
	}

	if last := len(globSegs) - 1; globSegs[last] == "**" {
		idx := -1
		if last > 0 {
			idx = slices.Index(segs, globSegs[last-1])
		}
		segs = append(segs[:idx+1:idx+1], "**")
	}

	return len(globSegs) == len(segs) && strings.Join(segs, "") == strings.Join(globSegs, "")
}

func isGlob(ref string) bool {
	return strings.Contains(ref, "*")
}
