package models

import (
	"fmt"
	"strings"
)

// Tier names a class of generation request; each tier maps to its own
// ordered provider fallback chain.
type Tier string

const (
	TierFast   Tier = "fast"
	TierHeavy  Tier = "heavy"
	TierChat   Tier = "chat"
	TierVision Tier = "vision"
)

// contains all supported tiers (in lowercase)
var SupportedTiers = map[Tier]bool{
	TierFast:   true,
	TierHeavy:  true,
	TierChat:   true,
	TierVision: true,
}

func SupportedTiersList() []string {
	return []string{string(TierFast), string(TierHeavy), string(TierChat), string(TierVision)}
}

// ParseTier normalizes a tier name and rejects unknown values.
func ParseTier(raw string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if !SupportedTiers[tier] {
		return "", fmt.Errorf("unsupported tier %q (supported: %s)", raw, strings.Join(SupportedTiersList(), ", "))
	}
	return tier, nil
}

// Provenance of a generated field.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Topic nature values accepted from the analyzer.
var ValidNatures = map[string]bool{
	"theoretical": true,
	"practical":   true,
	"technical":   true,
	"creative":    true,
	"analytical":  true,
	"historical":  true,
}

// Content formats a lesson may lean on.
var ValidContentFormats = map[string]bool{
	"text":       true,
	"code":       true,
	"diagram":    true,
	"formula":    true,
	"example":    true,
	"exercise":   true,
	"timeline":   true,
	"comparison": true,
}

var ValidTones = map[string]bool{
	"academic":       true,
	"conversational": true,
	"technical":      true,
	"inspiring":      true,
}

var ValidTaskTypes = map[string]bool{
	TaskTypeSingle:   true,
	TaskTypeMultiple: true,
	TaskTypeText:     true,
	TaskTypeNumber:   true,
}

var ValidDifficulties = map[string]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

const (
	TaskTypeSingle   = "single"
	TaskTypeMultiple = "multiple"
	TaskTypeText     = "text"
	TaskTypeNumber   = "number"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	// MinQueryLength and MaxQueryLength bound the trimmed topic query.
	MinQueryLength = 3
	MaxQueryLength = 200

	// DefaultCourseName is used when a request does not name a course.
	DefaultCourseName = "General"
)
