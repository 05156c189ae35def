package controllers

import (
	"testing"

	"quizhub/backend/models"

	"github.com/stretchr/testify/assert"
)

func TestScorePercentage(t *testing.T) {
	assert.Equal(t, 100, scorePercentage(5, 5))
	assert.Equal(t, 0, scorePercentage(0, 5))
	assert.Equal(t, 0, scorePercentage(0, 0))
	assert.Equal(t, 67, scorePercentage(2, 3)) // rounded to nearest
	assert.Equal(t, 33, scorePercentage(1, 3))
	assert.Equal(t, 50, scorePercentage(1, 2))
}

func TestAveragePercentage(t *testing.T) {
	assert.Equal(t, 0, averagePercentage(nil))
	assert.Equal(t, 75, averagePercentage([]models.QuizAttempt{
		{Percentage: 50},
		{Percentage: 100},
	}))
	// 50+100+75 = 225/3 exactly; 33+33+35 = 101/3 rounds up to 34
	assert.Equal(t, 75, averagePercentage([]models.QuizAttempt{
		{Percentage: 50},
		{Percentage: 100},
		{Percentage: 75},
	}))
	assert.Equal(t, 34, averagePercentage([]models.QuizAttempt{
		{Percentage: 33},
		{Percentage: 33},
		{Percentage: 35},
	}))
}

func TestPerformanceLevel(t *testing.T) {
	assert.Equal(t, "strong", performanceLevel(100))
	assert.Equal(t, "strong", performanceLevel(80))
	assert.Equal(t, "moderate", performanceLevel(79))
	assert.Equal(t, "moderate", performanceLevel(50))
	assert.Equal(t, "weak", performanceLevel(49))
	assert.Equal(t, "weak", performanceLevel(0))
}

func TestCategoryBreakdown(t *testing.T) {
	answers := []models.UserAnswer{
		{Category: "Math", IsCorrect: true},
		{Category: "Math", IsCorrect: true},
		{Category: "Math", IsCorrect: false},
		{Category: "History", IsCorrect: false},
		{Category: "History", IsCorrect: false},
		{Category: "", IsCorrect: true},
	}

	stats := categoryBreakdown(answers)
	assert.Len(t, stats, 3)

	// Sorted by category name; empty category lands in General
	assert.Equal(t, "General", stats[0].Category)
	assert.Equal(t, 100, stats[0].Percentage)
	assert.Equal(t, "strong", stats[0].Level)

	assert.Equal(t, "History", stats[1].Category)
	assert.Equal(t, 0, stats[1].Percentage)
	assert.Equal(t, "weak", stats[1].Level)

	assert.Equal(t, "Math", stats[2].Category)
	assert.Equal(t, 2, stats[2].Correct)
	assert.Equal(t, 3, stats[2].Total)
	assert.Equal(t, 67, stats[2].Percentage)
	assert.Equal(t, "moderate", stats[2].Level)
}

func TestCategoryBreakdownEmpty(t *testing.T) {
	assert.Empty(t, categoryBreakdown(nil))
}
