package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"quizhub/backend/config"
	"quizhub/backend/events"
	"quizhub/backend/models"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuizzesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Events eventPublisher
	Logger *log.Logger
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config, publisher *events.EventPublisher, logger *log.Logger) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg, Events: publisher, Logger: logger}
}

// [+] ListQuizzes godoc
// @Summary List quizzes
// @Description Lists quizzes, filterable by category and title
// @Tags quizzes
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /quizzes [get]
func (qc *QuizzesController) ListQuizzes(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	category := c.Query("category")
	search := c.Query("q")

	query := qc.DB.Model(&models.Quiz{}).Preload("Questions")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	var quizzes []models.Quiz
	query.Order("created_at DESC").Find(&quizzes)

	result := []fiber.Map{}
	for _, quiz := range quizzes {
		var attemptsUsed int64
		qc.DB.Model(&models.QuizAttempt{}).
			Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).
			Count(&attemptsUsed)

		result = append(result, fiber.Map{
			"id":            quiz.ID,
			"title":         quiz.Title,
			"description":   quiz.Description,
			"category":      quiz.Category,
			"time_limit":    quiz.TimeLimit,
			"max_attempts":  quiz.MaxAttempts,
			"questions":     len(quiz.Questions),
			"created_by":    quiz.CreatedBy,
			"created_at":    quiz.CreatedAt,
			"attempts_used": attemptsUsed,
			"can_attempt":   quiz.MaxAttempts == 0 || attemptsUsed < int64(quiz.MaxAttempts),
		})
	}

	return c.JSON(result)
}

// GetQuizDetails returns a quiz for taking. Correct answers are never
// included in this view.
func (qc *QuizzesController) GetQuizDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
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

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var attemptsUsed int64
	qc.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).
		Count(&attemptsUsed)

	return c.JSON(fiber.Map{
		"quiz":          quizTakerView(&quiz),
		"attempts_used": attemptsUsed,
		"can_attempt":   quiz.MaxAttempts == 0 || attemptsUsed < int64(quiz.MaxAttempts),
	})
}

// quizTakerView strips correct answers from the quiz payload.
func quizTakerView(quiz *models.Quiz) fiber.Map {
	questions := []fiber.Map{}
	for _, q := range quiz.Questions {
		var options []string
		json.Unmarshal([]byte(q.Options), &options)

		questions = append(questions, fiber.Map{
			"id":       q.ID,
			"question": q.Question,
			"options":  options,
			"category": q.Category,
		})
	}

	return fiber.Map{
		"id":           quiz.ID,
		"title":        quiz.Title,
		"description":  quiz.Description,
		"category":     quiz.Category,
		"time_limit":   quiz.TimeLimit,
		"max_attempts": quiz.MaxAttempts,
		"questions":    questions,
	}
}

func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		TimeLimit   int    `json:"time_limit"`
		MaxAttempts int    `json:"max_attempts"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}
	if input.TimeLimit < 0 || input.MaxAttempts < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "time_limit and max_attempts must not be negative",
		})
	}

	quiz := models.Quiz{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		TimeLimit:   input.TimeLimit,
		MaxAttempts: input.MaxAttempts,
		CreatedBy:   userID,
		ShareCode:   uuid.NewString(),
	}

	if err := qc.DB.Create(&quiz).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create quiz",
		})
	}

	publishEvent(qc.Logger, qc.Events, "quiz.created", fiber.Map{"quiz_id": quiz.ID, "title": quiz.Title})

	return c.JSON(fiber.Map{
		"message": "Quiz created",
		"quiz":    quiz,
	})
}

func (qc *QuizzesController) UpdateQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		TimeLimit   *int   `json:"time_limit"`
		MaxAttempts *int   `json:"max_attempts"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	// Update fields
	if input.Title != "" {
		quiz.Title = input.Title
	}
	if input.Description != "" {
		quiz.Description = input.Description
	}
	if input.Category != "" {
		quiz.Category = input.Category
	}
	if input.TimeLimit != nil && *input.TimeLimit >= 0 {
		quiz.TimeLimit = *input.TimeLimit
	}
	if input.MaxAttempts != nil && *input.MaxAttempts >= 0 {
		quiz.MaxAttempts = *input.MaxAttempts
	}

	if err := qc.DB.Save(&quiz).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update quiz",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Quiz updated",
		"quiz":    quiz,
	})
}

func (qc *QuizzesController) DeleteQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz not found",
		})
	}

	qc.DB.Where("quiz_id = ?", quizID).Delete(&models.Question{})
	qc.DB.Where("quiz_id = ?", quizID).Delete(&models.UserFavorite{})
	if err := qc.DB.Delete(&quiz).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete quiz",
		})
	}

	return c.JSON(fiber.Map{"message": "Quiz deleted"})
}

func (qc *QuizzesController) AddQuestion(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var input struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer int      `json:"correct_answer"`
		Category      string   `json:"category"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if input.Question == "" || len(input.Options) != 4 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question text and exactly 4 options are required",
		})
	}

	// Validate correct answer index
	if input.CorrectAnswer < 0 || input.CorrectAnswer >= len(input.Options) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Correct answer index out of range",
		})
	}

	optionsJSON, _ := json.Marshal(input.Options)
	category := input.Category
	if category == "" {
		category = quiz.Category
	}

	question := models.Question{
		QuizID:        quiz.ID,
		Question:      input.Question,
		Options:       string(optionsJSON),
		CorrectAnswer: input.CorrectAnswer,
		Category:      category,
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create question",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Question added",
		"question": question,
	})
}

func (qc *QuizzesController) UpdateQuestion(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question ID",
		})
	}

	var input struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer *int     `json:"correct_answer"`
		Category      string   `json:"category"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var question models.Question
	if err := qc.DB.Where("id = ? AND quiz_id = ?", questionID, quizID).First(&question).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Question not found",
		})
	}

	if input.Question != "" {
		question.Question = input.Question
	}
	if len(input.Options) > 0 {
		if len(input.Options) != 4 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Exactly 4 options are required",
			})
		}
		optionsJSON, _ := json.Marshal(input.Options)
		question.Options = string(optionsJSON)
	}
	if input.CorrectAnswer != nil {
		if *input.CorrectAnswer < 0 || *input.CorrectAnswer > 3 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Correct answer index out of range",
			})
		}
		question.CorrectAnswer = *input.CorrectAnswer
	}
	if input.Category != "" {
		question.Category = input.Category
	}

	if err := qc.DB.Save(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update question",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Question updated",
		"question": question,
	})
}

func (qc *QuizzesController) DeleteQuestion(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question ID",
		})
	}

	result := qc.DB.Where("id = ? AND quiz_id = ?", questionID, quizID).Delete(&models.Question{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Question not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Question deleted"})
}

// ImportQuestionsCSV bulk-imports questions from an uploaded CSV file.
// Malformed rows are skipped; the response reports both counts.
func (qc *QuizzesController) ImportQuestionsCSV(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz not found",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing file upload",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not open uploaded file",
		})
	}
	defer file.Close()

	parsed, skipped, err := utils.ParseQuestionsCSV(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not parse CSV file",
		})
	}

	imported := 0
	for _, p := range parsed {
		optionsJSON, _ := json.Marshal(p.Options)
		question := models.Question{
			QuizID:        quiz.ID,
			Question:      p.Question,
			Options:       string(optionsJSON),
			CorrectAnswer: p.CorrectAnswer,
			Category:      p.Category,
		}
		if err := qc.DB.Create(&question).Error; err != nil {
			skipped++
			continue
		}
		imported++
	}

	return c.JSON(fiber.Map{
		"message":  "Import finished",
		"imported": imported,
		"skipped":  skipped,
	})
}

// ShareQuiz returns the quiz's share code, generating one for older rows
// that predate share codes.
func (qc *QuizzesController) ShareQuiz(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz not found",
		})
	}

	if quiz.ShareCode == "" {
		quiz.ShareCode = uuid.NewString()
		if err := qc.DB.Save(&quiz).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not generate share code",
			})
		}
	}

	return c.JSON(fiber.Map{"share_code": quiz.ShareCode})
}

// GetSharedQuiz resolves a share code without authentication. The taker
// view applies, so correct answers stay hidden.
func (qc *QuizzesController) GetSharedQuiz(c *fiber.Ctx) error {
	code := c.Params("code")

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions").Where("share_code = ?", code).First(&quiz).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz not found",
		})
	}

	return c.JSON(fiber.Map{"quiz": quizTakerView(&quiz)})
}
