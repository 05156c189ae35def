package controllers

import (
	"strconv"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UsersController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUsersController(db *gorm.DB, cfg *config.Config) *UsersController {
	return &UsersController{DB: db, Cfg: cfg}
}

func (uc *UsersController) GetProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var attemptCount int64
	uc.DB.Model(&models.QuizAttempt{}).Where("user_id = ?", userID).Count(&attemptCount)

	return c.JSON(fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"attempts":   attemptCount,
	})
}

func (uc *UsersController) UpdateProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Email != "" {
		user.Email = input.Email
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.BadRequest(c, "Username or email already taken")
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated",
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// ListUsers returns a paginated user list for the admin panel.
func (uc *UsersController) ListUsers(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.Query("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	uc.DB.Model(&models.User{}).Count(&total)

	var users []models.User
	uc.DB.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users)

	result := []fiber.Map{}
	for _, user := range users {
		result = append(result, fiber.Map{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"role":       user.Role,
			"created_at": user.CreatedAt,
			"legacy":     user.LegacyPasswordHash != "",
		})
	}

	return utils.Paginate(c, result, total, page, pageSize)
}

func (uc *UsersController) UpdateUserRole(c *fiber.Ctx) error {
	targetID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Role != "user" && input.Role != "admin" {
		return utils.BadRequest(c, "Role must be 'user' or 'admin'")
	}

	var user models.User
	if err := uc.DB.First(&user, targetID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	user.Role = input.Role
	if err := uc.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Role updated",
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// DeleteUser removes a user together with their attempts and favorites.
func (uc *UsersController) DeleteUser(c *fiber.Ctx) error {
	callerID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	targetID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	if uint(targetID) == callerID {
		return utils.BadRequest(c, "Cannot delete your own account")
	}

	var user models.User
	if err := uc.DB.First(&user, targetID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	// Hard deletes throughout: a soft-deleted user row would keep the unique
	// username/email columns occupied and make them unregisterable.
	uc.DB.Unscoped().Where("user_id = ?", targetID).Delete(&models.QuizAttempt{})
	uc.DB.Unscoped().Where("user_id = ?", targetID).Delete(&models.UserFavorite{})
	uc.DB.Unscoped().Where("user_id = ?", targetID).Delete(&models.PasswordReset{})
	if err := uc.DB.Unscoped().Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete user",
		})
	}

	return c.JSON(fiber.Map{"message": "User deleted"})
}
