package outline

import "fmt"

// Level is the structural role assigned to a text block.
// The zero value None marks a block that has not been labeled or classified yet.
type Level int

const (
	None Level = iota
	Title
	H1
	H2
	H3
	H4
	H5
	H6
	Body
)

var levelNames = map[Level]string{
	None:  "",
	Title: "Title",
	H1:    "H1",
	H2:    "H2",
	H3:    "H3",
	H4:    "H4",
	H5:    "H5",
	H6:    "H6",
	Body:  "Body",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts the serialized form back to a Level.
// The empty string parses to None (an unlabeled row).
func ParseLevel(s string) (Level, error) {
	switch s {
	case "":
		return None, nil
	case "Title":
		return Title, nil
	case "H1":
		return H1, nil
	case "H2":
		return H2, nil
	case "H3":
		return H3, nil
	case "H4":
		return H4, nil
	case "H5":
		return H5, nil
	case "H6":
		return H6, nil
	case "Body":
		return Body, nil
	}
	return None, fmt.Errorf("unknown level %q", s)
}

// IsHeading reports whether l opens a new outline scope. Title counts as a
// heading; Body and None do not.
func (l Level) IsHeading() bool {
	return l >= Title && l <= H6
}

// Rank is the hierarchy depth used during assembly: Title is 0 and H1 through
// H6 are 1 through 6. Body ranks below every heading so it always attaches as
// a leaf of the innermost open scope.
func (l Level) Rank() int {
	switch {
	case l == Title:
		return 0
	case l >= H1 && l <= H6:
		return int(l - H1 + 1)
	default:
		return int(H6-H1) + 2
	}
}

// Heading returns the heading level for a rank: 0 yields Title, 1 through 6
// yield H1 through H6.
func Heading(rank int) Level {
	if rank <= 0 {
		return Title
	}
	if rank > 6 {
		rank = 6
	}
	return H1 + Level(rank-1)
}

// Clamp caps heading depth at maxDepth. H-levels deeper than maxDepth collapse
// onto H<maxDepth>; Title, Body and None pass through unchanged.
func (l Level) Clamp(maxDepth int) Level {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 6 {
		maxDepth = 6
	}
	if l >= H1 && l <= H6 && l.Rank() > maxDepth {
		return Heading(maxDepth)
	}
	return l
}

// Levels returns the closed label set for the configured heading depth:
// Title, H1..H<maxDepth>, Body. This is what the annotation surface offers.
func Levels(maxDepth int) []Level {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 6 {
		maxDepth = 6
	}
	out := []Level{Title}
	for d := 1; d <= maxDepth; d++ {
		out = append(out, Heading(d))
	}
	return append(out, Body)
}

// MarshalText serializes the level for CSV and JSON use.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses the serialized form.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
