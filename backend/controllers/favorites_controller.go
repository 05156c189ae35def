package controllers

import (
	"errors"
	"strconv"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FavoritesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewFavoritesController(db *gorm.DB, cfg *config.Config) *FavoritesController {
	return &FavoritesController{DB: db, Cfg: cfg}
}

// ToggleFavorite adds the quiz to the caller's favorites, or removes it if
// already present.
func (fc *FavoritesController) ToggleFavorite(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, fc.Cfg)
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
	if err := fc.DB.First(&quiz, quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz not found",
		})
	}

	var favorite models.UserFavorite
	err = fc.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).First(&favorite).Error
	if err == nil {
		// Hard delete: a soft-deleted row would still occupy the unique
		// (user_id, quiz_id) index and block re-favoriting.
		fc.DB.Unscoped().Delete(&favorite)
		return c.JSON(fiber.Map{"message": "Favorite removed", "favorited": false})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	favorite = models.UserFavorite{UserID: userID, QuizID: uint(quizID)}
	if err := fc.DB.Create(&favorite).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save favorite",
		})
	}

	return c.JSON(fiber.Map{"message": "Favorite added", "favorited": true})
}

func (fc *FavoritesController) GetFavorites(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, fc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var quizzes []models.Quiz
	fc.DB.Joins("JOIN user_favorites ON user_favorites.quiz_id = quizzes.id").
		Where("user_favorites.user_id = ? AND user_favorites.deleted_at IS NULL", userID).
		Find(&quizzes)

	result := []fiber.Map{}
	for _, quiz := range quizzes {
		result = append(result, fiber.Map{
			"id":          quiz.ID,
			"title":       quiz.Title,
			"description": quiz.Description,
			"category":    quiz.Category,
			"time_limit":  quiz.TimeLimit,
		})
	}

	return c.JSON(result)
}
