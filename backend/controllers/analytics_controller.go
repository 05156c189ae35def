package controllers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quizhub/backend/config"
	"quizhub/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AnalyticsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg}
}

// [+] GetPlatformAnalytics godoc
// @Summary Platform analytics
// @Description Aggregate usage and performance numbers for the admin panel
// @Tags analytics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/analytics [get]
func (anc *AnalyticsController) GetPlatformAnalytics(c *fiber.Ctx) error {
	var totalUsers, totalQuizzes, totalQuestions, totalAttempts int64
	anc.DB.Model(&models.User{}).Count(&totalUsers)
	anc.DB.Model(&models.Quiz{}).Count(&totalQuizzes)
	anc.DB.Model(&models.Question{}).Count(&totalQuestions)
	anc.DB.Model(&models.QuizAttempt{}).Count(&totalAttempts)

	var attempts []models.QuizAttempt
	anc.DB.Find(&attempts)

	return c.JSON(fiber.Map{
		"total_users":     totalUsers,
		"total_quizzes":   totalQuizzes,
		"total_questions": totalQuestions,
		"total_attempts":  totalAttempts,
		"avg_percentage":  averagePercentage(attempts),
		"quizzes":         anc.quizSummaries(),
		"categories":      aggregateCategories(attempts),
	})
}

func (anc *AnalyticsController) GetQuizAnalytics(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := anc.DB.First(&quiz, quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz not found",
		})
	}

	var attempts []models.QuizAttempt
	if err := anc.DB.Where("quiz_id = ?", quizID).Find(&attempts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	users := []fiber.Map{}
	for _, attempt := range attempts {
		var user models.User
		if err := anc.DB.First(&user, attempt.UserID).Error; err != nil {
			continue
		}

		users = append(users, fiber.Map{
			"user_id":         user.ID,
			"username":        user.Username,
			"score":           attempt.Score,
			"total_questions": attempt.TotalQuestions,
			"percentage":      attempt.Percentage,
			"time_taken":      attempt.TimeTaken,
			"auto_submitted":  attempt.AutoSubmitted,
			"completed_at":    attempt.CompletedAt,
		})
	}

	return c.JSON(fiber.Map{
		"quiz": fiber.Map{
			"id":       quiz.ID,
			"title":    quiz.Title,
			"category": quiz.Category,
		},
		"attempts":   users,
		"categories": aggregateCategories(attempts),
	})
}

// DownloadReport renders the platform summary as plain text, served as a
// file attachment.
func (anc *AnalyticsController) DownloadReport(c *fiber.Ctx) error {
	var totalUsers, totalQuizzes, totalAttempts int64
	anc.DB.Model(&models.User{}).Count(&totalUsers)
	anc.DB.Model(&models.Quiz{}).Count(&totalQuizzes)
	anc.DB.Model(&models.QuizAttempt{}).Count(&totalAttempts)

	var attempts []models.QuizAttempt
	anc.DB.Find(&attempts)

	var b strings.Builder
	b.WriteString("QuizHub Platform Report\n")
	b.WriteString("Generated: " + time.Now().Format("2006-01-02 15:04:05") + "\n")
	b.WriteString("=======================\n\n")
	fmt.Fprintf(&b, "Total users:    %d\n", totalUsers)
	fmt.Fprintf(&b, "Total quizzes:  %d\n", totalQuizzes)
	fmt.Fprintf(&b, "Total attempts: %d\n", totalAttempts)
	fmt.Fprintf(&b, "Average score:  %d%%\n\n", averagePercentage(attempts))

	b.WriteString("Per-quiz summary\n----------------\n")
	for _, summary := range anc.quizSummaries() {
		fmt.Fprintf(&b, "%-40s attempts: %-5v avg: %v%%\n",
			summary["title"], summary["attempts"], summary["avg_percentage"])
	}

	b.WriteString("\nCategory performance\n--------------------\n")
	for _, stat := range aggregateCategories(attempts) {
		fmt.Fprintf(&b, "%-24s %d/%d (%d%%, %s)\n",
			stat.Category, stat.Correct, stat.Total, stat.Percentage, stat.Level)
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Content-Disposition", `attachment; filename="quizhub-report.txt"`)
	return c.SendString(b.String())
}

func (anc *AnalyticsController) quizSummaries() []fiber.Map {
	var quizzes []models.Quiz
	anc.DB.Find(&quizzes)

	summaries := []fiber.Map{}
	for _, quiz := range quizzes {
		var attempts []models.QuizAttempt
		anc.DB.Where("quiz_id = ?", quiz.ID).Find(&attempts)

		summaries = append(summaries, fiber.Map{
			"id":             quiz.ID,
			"title":          quiz.Title,
			"category":       quiz.Category,
			"attempts":       len(attempts),
			"avg_percentage": averagePercentage(attempts),
		})
	}
	return summaries
}

// aggregateCategories merges the answer records of many attempts into one
// category breakdown.
func aggregateCategories(attempts []models.QuizAttempt) []CategoryStat {
	var all []models.UserAnswer
	for _, attempt := range attempts {
		var answers []models.UserAnswer
		if err := json.Unmarshal([]byte(attempt.Answers), &answers); err != nil {
			continue
		}
		all = append(all, answers...)
	}
	return categoryBreakdown(all)
}
