package model

import "strings"

// Verdict is the consensus outcome for a claim. Unclear is the explicit
// no-consensus state, not an error.
type Verdict string

const (
	VerdictMisinformation    Verdict = "Misinformation"
	VerdictNotMisinformation Verdict = "Not-misinformation"
	VerdictUnclear           Verdict = "Unclear"
)

// Verdicts returns every verdict in enumeration order. Majority ties resolve
// to whichever verdict appears first here.
func Verdicts() []Verdict {
	return []Verdict{VerdictMisinformation, VerdictNotMisinformation, VerdictUnclear}
}

// Valid reports whether v is one of the three known verdicts
func (v Verdict) Valid() bool {
	switch v {
	case VerdictMisinformation, VerdictNotMisinformation, VerdictUnclear:
		return true
	}
	return false
}

// MisinfoType classifies how a misinforming post misleads
type MisinfoType string

const (
	MisinfoManipulated  MisinfoType = "manipulated"    // Distorted real content
	MisinfoFake         MisinfoType = "fake"           // Completely fabricated
	MisinfoImposter     MisinfoType = "imposter"       // Impersonates a genuine source
	MisinfoOutOfContext MisinfoType = "out-of-context" // Accurate content in a false context
)

// MisinfoTypes returns all misinformation types
func MisinfoTypes() []MisinfoType {
	return []MisinfoType{MisinfoManipulated, MisinfoFake, MisinfoImposter, MisinfoOutOfContext}
}

// ParseMisinfoType matches free text against the known types, ignoring case
// and surrounding punctuation.
func ParseMisinfoType(s string) (MisinfoType, bool) {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), ".,;:!\"'`"))
	s = strings.ReplaceAll(s, " ", "-")
	for _, t := range MisinfoTypes() {
		if s == string(t) {
			return t, true
		}
	}
	return "", false
}
