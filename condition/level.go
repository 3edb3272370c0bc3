package condition

import "strings"

// Level is an ordered condition rating. Higher values are worse, so the
// worst-case merge is a plain max.
type Level int

const (
	Good Level = iota
	Fair
	Poor
	Bad
)

var levelNames = [...]string{"Good", "Fair", "Poor", "Bad"}

func (l Level) String() string {
	if l < Good || l > Bad {
		return "Fair"
	}
	return levelNames[l]
}

// ParseLevel maps a stored or user-supplied rating onto a Level. Unknown
// values (legacy fields, provider typos) coerce to Fair as a neutral middle
// rather than failing.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return Good
	case "fair":
		return Fair
	case "poor":
		return Poor
	case "bad":
		return Bad
	default:
		return Fair
	}
}

// Worse returns the worse of two levels.
func Worse(a, b Level) Level {
	if b > a {
		return b
	}
	return a
}
