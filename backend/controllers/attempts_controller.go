package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"quizhub/backend/config"
	"quizhub/backend/events"
	"quizhub/backend/models"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AttemptsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Events eventPublisher
	Logger *log.Logger
}

func NewAttemptsController(db *gorm.DB, cfg *config.Config, publisher *events.EventPublisher, logger *log.Logger) *AttemptsController {
	return &AttemptsController{DB: db, Cfg: cfg, Events: publisher, Logger: logger}
}

// [+] SubmitAttempt godoc
// @Summary Submit a quiz attempt
// @Description Grades the submitted answers and records an immutable attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Router /quizzes/{id}/attempts [post]
func (atc *AttemptsController) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, atc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	type AnswerInput struct {
		QuestionID uint `json:"question_id"`
		Answer     int  `json:"answer"`
	}
	var input struct {
		Answers       []AnswerInput `json:"answers"`
		TimeTaken     int           `json:"time_taken"` // seconds
		AutoSubmitted bool          `json:"auto_submitted"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var quiz models.Quiz
	if err := atc.DB.Preload("Questions").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if len(quiz.Questions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Quiz has no questions",
		})
	}

	// Check attempts
	var attemptsUsed int64
	atc.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).
		Count(&attemptsUsed)
	if quiz.MaxAttempts > 0 && attemptsUsed >= int64(quiz.MaxAttempts) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No attempts left",
		})
	}

	selected := make(map[uint]int, len(input.Answers))
	for _, a := range input.Answers {
		selected[a.QuestionID] = a.Answer
	}

	// Grade every question of the quiz. Questions the taker never reached
	// (auto-submit on timer expiry) are recorded as unanswered.
	answers := make([]models.UserAnswer, 0, len(quiz.Questions))
	score := 0
	for _, q := range quiz.Questions {
		var options []string
		json.Unmarshal([]byte(q.Options), &options)

		answer, answered := selected[q.ID]
		if !answered {
			answer = -1
		}

		isCorrect := answered && answer == q.CorrectAnswer
		if isCorrect {
			score++
		}

		answers = append(answers, models.UserAnswer{
			QuestionID:     q.ID,
			SelectedAnswer: answer,
			IsCorrect:      isCorrect,
			Category:       q.Category,
			Question:       q.Question,
			Options:        options,
			CorrectAnswer:  q.CorrectAnswer,
		})
	}

	timeTaken := input.TimeTaken
	autoSubmitted := input.AutoSubmitted
	if quiz.TimeLimit > 0 && timeTaken > quiz.TimeLimit*60 {
		// A submission past the limit counts as an auto-submit with whatever
		// answers were recorded at expiry.
		timeTaken = quiz.TimeLimit * 60
		autoSubmitted = true
	}
	if timeTaken < 0 {
		timeTaken = 0
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not serialize answers",
		})
	}

	attempt := models.QuizAttempt{
		UserID:         userID,
		QuizID:         quiz.ID,
		Score:          score,
		TotalQuestions: len(quiz.Questions),
		Percentage:     scorePercentage(score, len(quiz.Questions)),
		Answers:        string(answersJSON),
		TimeTaken:      timeTaken,
		AutoSubmitted:  autoSubmitted,
		CompletedAt:    time.Now(),
	}

	if err := atc.DB.Create(&attempt).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save attempt",
		})
	}

	publishEvent(atc.Logger, atc.Events, "attempt.completed", fiber.Map{
		"attempt_id": attempt.ID,
		"user_id":    userID,
		"quiz_id":    quiz.ID,
		"score":      score,
		"percentage": attempt.Percentage,
	})

	attemptsLeft := -1
	if quiz.MaxAttempts > 0 {
		attemptsLeft = quiz.MaxAttempts - int(attemptsUsed) - 1
	}

	return c.JSON(fiber.Map{
		"message": "Attempt recorded",
		"attempt": fiber.Map{
			"id":              attempt.ID,
			"score":           attempt.Score,
			"total_questions": attempt.TotalQuestions,
			"percentage":      attempt.Percentage,
			"time_taken":      attempt.TimeTaken,
			"auto_submitted":  attempt.AutoSubmitted,
			"completed_at":    attempt.CompletedAt,
			"attempts_left":   attemptsLeft,
			"categories":      categoryBreakdown(answers),
		},
	})
}

func (atc *AttemptsController) GetMyAttempts(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, atc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var attempts []models.QuizAttempt
	atc.DB.Where("user_id = ?", userID).Order("completed_at DESC").Find(&attempts)

	result := []fiber.Map{}
	for _, attempt := range attempts {
		var quiz models.Quiz
		atc.DB.First(&quiz, attempt.QuizID)

		result = append(result, fiber.Map{
			"id":              attempt.ID,
			"quiz_id":         attempt.QuizID,
			"quiz_title":      quiz.Title,
			"score":           attempt.Score,
			"total_questions": attempt.TotalQuestions,
			"percentage":      attempt.Percentage,
			"time_taken":      attempt.TimeTaken,
			"auto_submitted":  attempt.AutoSubmitted,
			"completed_at":    attempt.CompletedAt,
		})
	}

	return c.JSON(result)
}

// GetAttemptResult returns one attempt with its answers and the
// per-category performance breakdown. Owners and admins only.
func (atc *AttemptsController) GetAttemptResult(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, atc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attemptID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid attempt ID",
		})
	}

	var attempt models.QuizAttempt
	if err := atc.DB.First(&attempt, attemptID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Attempt not found",
		})
	}

	if attempt.UserID != userID {
		var user models.User
		if err := atc.DB.First(&user, userID).Error; err != nil || user.Role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to view this attempt",
			})
		}
	}

	var answers []models.UserAnswer
	if err := json.Unmarshal([]byte(attempt.Answers), &answers); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not decode attempt answers",
		})
	}

	return c.JSON(fiber.Map{
		"attempt": fiber.Map{
			"id":              attempt.ID,
			"quiz_id":         attempt.QuizID,
			"score":           attempt.Score,
			"total_questions": attempt.TotalQuestions,
			"percentage":      attempt.Percentage,
			"time_taken":      attempt.TimeTaken,
			"auto_submitted":  attempt.AutoSubmitted,
			"completed_at":    attempt.CompletedAt,
			"answers":         answers,
			"categories":      categoryBreakdown(answers),
		},
	})
}
