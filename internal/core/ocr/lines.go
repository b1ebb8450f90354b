package ocr

import (
	"math"
	"sort"
	"strings"
)

// DefaultLineTolerance is the vertical distance, in pixels, within which a
// fragment joins an existing line.
const DefaultLineTolerance = 10.0

// Line is a row of fragments read left to right.
type Line struct {
	Text      string
	Fragments []Fragment
	CenterY   float64 // running average of member centres
}

// Group assigns fragments, in the order given, to the first line whose
// running average centre is within tolerance, and starts a new line
// otherwise. Lines are never rebalanced afterwards, so a tall fragment can
// drag a line's centre.
func Group(frags []Fragment, tolerance float64) []Line {
	if tolerance <= 0 {
		tolerance = DefaultLineTolerance
	}
	type group struct {
		members []Fragment
		sum     float64
	}
	var groups []*group
	for _, f := range frags {
		c := f.Box.CenterY()
		var target *group
		for _, g := range groups {
			if math.Abs(g.sum/float64(len(g.members))-c) <= tolerance {
				target = g
				break
			}
		}
		if target == nil {
			target = &group{}
			groups = append(groups, target)
		}
		target.members = append(target.members, f)
		target.sum += c
	}

	lines := make([]Line, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.members, func(i, j int) bool { return g.members[i].Box.X1 < g.members[j].Box.X1 })
		parts := make([]string, 0, len(g.members))
		for _, m := range g.members {
			if t := strings.TrimSpace(m.Text); t != "" {
				parts = append(parts, t)
			}
		}
		lines = append(lines, Line{
			Text:      strings.Join(parts, " "),
			Fragments: g.members,
			CenterY:   g.sum / float64(len(g.members)),
		})
	}
	return lines
}

// JoinLines renders lines as newline-separated text.
func JoinLines(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Text != "" {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// FilterConfidence drops fragments below floor.
func FilterConfidence(frags []Fragment, floor float64) []Fragment {
	out := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		if f.Confidence >= floor {
			out = append(out, f)
		}
	}
	return out
}
