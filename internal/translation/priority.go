package translation

import "strings"

type Priority int

const (
	Low Priority = iota
	Normal
	High
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Normal:
		return "normal"
	default:
		return "low"
	}
}

// clamp приводит значения вне Low..High к ближайшему уровню
func (p Priority) clamp() Priority {
	switch {
	case p < Low:
		return Low
	case p > High:
		return High
	default:
		return p
	}
}

// ParsePriority понимает high/normal/low, остальное считается normal
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return High
	case "low":
		return Low
	default:
		return Normal
	}
}

// TierPolicy раздаёт приоритеты по позиции сообщения, 0 = самое новое.
// Первые HighCount получают High, следующие NormalCount получают Normal.
type TierPolicy struct {
	HighCount   int
	NormalCount int
}

func DefaultTierPolicy() TierPolicy {
	return TierPolicy{HighCount: 5, NormalCount: 10}
}

func (t TierPolicy) Tier(index int) Priority {
	switch {
	case index < t.HighCount:
		return High
	case index < t.HighCount+t.NormalCount:
		return Normal
	default:
		return Low
	}
}
