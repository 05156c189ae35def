package controllers

import (
	"math"
	"sort"

	"quizhub/backend/models"
)

// CategoryStat is the per-category slice of an attempt or of the whole
// platform, bucketed the same way everywhere: strong >=80, moderate 50-79,
// weak <50.
type CategoryStat struct {
	Category   string `json:"category"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Level      string `json:"level"`
}

// scorePercentage rounds correct/total to the nearest whole percent.
func scorePercentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// averagePercentage rounds the mean attempt percentage to the nearest whole
// percent. Zero attempts average to zero.
func averagePercentage(attempts []models.QuizAttempt) int {
	if len(attempts) == 0 {
		return 0
	}
	sum := 0
	for _, attempt := range attempts {
		sum += attempt.Percentage
	}
	return int(math.Round(float64(sum) / float64(len(attempts))))
}

func performanceLevel(percentage int) string {
	switch {
	case percentage >= 80:
		return "strong"
	case percentage >= 50:
		return "moderate"
	default:
		return "weak"
	}
}

// categoryBreakdown buckets the answers of one attempt by question category.
func categoryBreakdown(answers []models.UserAnswer) []CategoryStat {
	correct := make(map[string]int)
	total := make(map[string]int)
	for _, a := range answers {
		category := a.Category
		if category == "" {
			category = "General"
		}
		total[category]++
		if a.IsCorrect {
			correct[category]++
		}
	}

	categories := make([]string, 0, len(total))
	for category := range total {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	stats := make([]CategoryStat, 0, len(categories))
	for _, category := range categories {
		pct := scorePercentage(correct[category], total[category])
		stats = append(stats, CategoryStat{
			Category:   category,
			Correct:    correct[category],
			Total:      total[category],
			Percentage: pct,
			Level:      performanceLevel(pct),
		})
	}
	return stats
}
