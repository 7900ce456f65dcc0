// internal/domain/urgency.go
package domain

import "strings"

// Urgency classifies restocking priority for a variant.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

var urgencyRanks = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyHigh:     1,
	UrgencyMedium:   2,
	UrgencyLow:      3,
}

// Rank returns the sort position of the tier, critical first. Unknown values
// sort after low so bad data never jumps the queue.
func (u Urgency) Rank() int {
	if r, ok := urgencyRanks[u]; ok {
		return r
	}
	return len(urgencyRanks)
}

// ParseUrgency normalizes a user-supplied tier name. The empty string means
// no filter and is returned as-is.
func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyCritical:
		return UrgencyCritical, true
	case UrgencyHigh:
		return UrgencyHigh, true
	case UrgencyMedium:
		return UrgencyMedium, true
	case UrgencyLow:
		return UrgencyLow, true
	case "":
		return "", true
	}
	return "", false
}

// Confidence classifies statistical reliability of the velocity estimate.
// It is computed from the order sample and window geometry only, never from
// urgency: a variant can be critical urgency with low confidence at the same
// time, and the two must never be conflated.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)
