package controllers

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"quizhub/backend/cache"
	"quizhub/backend/config"
	"quizhub/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const leaderboardTTL = 60 * time.Second

type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	TimeTaken  int       `json:"time_taken"`
	Date       time.Time `json:"date"`
}

type LeaderboardController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Cache *cache.Cache
}

func NewLeaderboardController(db *gorm.DB, cfg *config.Config, c *cache.Cache) *LeaderboardController {
	return &LeaderboardController{DB: db, Cfg: cfg, Cache: c}
}

// [+] GetLeaderboard godoc
// @Summary Leaderboard
// @Description Top users by best attempt percentage, globally or per quiz
// @Tags leaderboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /leaderboard [get]
func (lc *LeaderboardController) GetLeaderboard(c *fiber.Ctx) error {
	quizID, _ := strconv.Atoi(c.Query("quiz_id", "0"))
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	key := fmt.Sprintf("leaderboard:%d:%d", quizID, limit)

	var entries []LeaderboardEntry
	if lc.Cache.GetJSON(c.Context(), key, &entries) {
		return c.JSON(fiber.Map{"leaderboard": entries, "cached": true})
	}

	query := lc.DB.Model(&models.QuizAttempt{})
	if quizID > 0 {
		query = query.Where("quiz_id = ?", quizID)
	}

	var attempts []models.QuizAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	entries = rankAttempts(attempts, limit)

	// Join usernames only for the ranked rows
	for i := range entries {
		var user models.User
		if err := lc.DB.First(&user, entries[i].UserID).Error; err == nil {
			entries[i].Username = user.Username
		}
	}

	lc.Cache.SetJSON(c.Context(), key, entries, leaderboardTTL)

	return c.JSON(fiber.Map{"leaderboard": entries, "cached": false})
}

// rankAttempts keeps each user's best attempt (highest percentage, then
// fastest, then earliest) and returns the top entries ranked from 1.
func rankAttempts(attempts []models.QuizAttempt, limit int) []LeaderboardEntry {
	best := make(map[uint]models.QuizAttempt)
	for _, attempt := range attempts {
		current, ok := best[attempt.UserID]
		if !ok || betterAttempt(attempt, current) {
			best[attempt.UserID] = attempt
		}
	}

	ranked := make([]models.QuizAttempt, 0, len(best))
	for _, attempt := range best {
		ranked = append(ranked, attempt)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return betterAttempt(ranked[i], ranked[j])
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for i, attempt := range ranked {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			UserID:     attempt.UserID,
			Score:      attempt.Score,
			Total:      attempt.TotalQuestions,
			Percentage: attempt.Percentage,
			TimeTaken:  attempt.TimeTaken,
			Date:       attempt.CompletedAt,
		})
	}
	return entries
}

func betterAttempt(a, b models.QuizAttempt) bool {
	if a.Percentage != b.Percentage {
		return a.Percentage > b.Percentage
	}
	if a.TimeTaken != b.TimeTaken {
		return a.TimeTaken < b.TimeTaken
	}
	return a.CompletedAt.Before(b.CompletedAt)
}
