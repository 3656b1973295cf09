package domain

import "math"

const (
	// DefaultCourseXP is the XP pool used when a course does not set its own.
	DefaultCourseXP = 500
	// PersistenceBonus is awarded on top of any positive improvement.
	PersistenceBonus = 25
	// PerfectScore is the ceiling after which retakes earn nothing.
	PerfectScore = 100.0
)

// XPBreakdown itemizes an XP award.
type XPBreakdown struct {
	Improvement      float64 `json:"improvement"`
	ImprovementXP    int     `json:"improvementXp"`
	PersistenceBonus int     `json:"persistenceBonus"`
	Total            int     `json:"total"`
}

// XPResult is the outcome of CalculateXP.
type XPResult struct {
	XPEarned  int         `json:"xpEarned"`
	Breakdown XPBreakdown `json:"breakdown"`
}

// CalculateXP awards XP only for improvement over bestPrevious. A totalCourseXP
// of zero or less falls back to DefaultCourseXP.
func CalculateXP(newScore, bestPrevious float64, totalCourseXP int) XPResult {
	if totalCourseXP <= 0 {
		totalCourseXP = DefaultCourseXP
	}
	if bestPrevious >= PerfectScore {
		return XPResult{}
	}
	improvement := math.Max(0, newScore-bestPrevious)
	if improvement == 0 {
		return XPResult{}
	}
	// multiply before dividing so round scores floor exactly
	improvementXP := int(math.Floor(improvement * float64(totalCourseXP) / 100))
	total := improvementXP + PersistenceBonus
	return XPResult{
		XPEarned: total,
		Breakdown: XPBreakdown{
			Improvement:      improvement,
			ImprovementXP:    improvementXP,
			PersistenceBonus: PersistenceBonus,
			Total:            total,
		},
	}
}
