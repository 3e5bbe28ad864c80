package domain

// Severity weights used by RiskScore.
var severityWeights = map[Severity]int{
	SeverityCritical: 25,
	SeverityHigh:     15,
	SeverityMedium:   8,
	SeverityLow:      3,
}

// MaxRiskScore caps the aggregate score.
const MaxRiskScore = 100

// RiskScore sums the severity weights of factors, capped at MaxRiskScore.
func RiskScore(factors []RiskFactor) int {
	score := 0
	for _, f := range factors {
		score += severityWeights[f.Severity]
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// RiskLevel buckets an aggregate score.
func RiskLevel(score int) Severity {
	switch {
	case score >= 75:
		return SeverityCritical
	case score >= 50:
		return SeverityHigh
	case score >= 25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RiskColor is the display color for an aggregate score.
func RiskColor(score int) string {
	switch RiskLevel(score) {
	case SeverityCritical:
		return "#FF4444"
	case SeverityHigh:
		return "#FF8800"
	case SeverityMedium:
		return "#FFCC00"
	default:
		return "#44AA44"
	}
}
