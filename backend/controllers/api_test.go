package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"

	"quizhub/backend/config"
	"quizhub/backend/models"
	"quizhub/backend/routes"
	"quizhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	adminToken string
	takerToken string
)

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	cfg = &config.Config{
		DBHost:     envOr("DB_HOST", "localhost"),
		DBPort:     envOr("DB_PORT", "5432"),
		DBUser:     envOr("DB_USER", "postgres"),
		DBPassword: envOr("DB_PASSWORD", "postgres"),
		DBName:     envOr("DB_NAME", "quizhub_test"),
		JWTSecret:  "testsecret",
		ServerPort: "8080",
	}

	var err error
	db, err = utils.InitDB(cfg)
	if err != nil {
		panic(err)
	}

	app = fiber.New()
	routes.SetupRoutes(app, db, cfg, nil, nil, utils.InitLogger())

	adminToken = register("admin", "admin@example.com", "password")
	db.Model(&models.User{}).Where("username = ?", "admin").Update("role", "admin")

	takerToken = register("taker", "taker@example.com", "password")
}

func teardown() {
	db.Migrator().DropTable(
		&models.User{},
		&models.PasswordReset{},
		&models.Quiz{},
		&models.Question{},
		&models.QuizAttempt{},
		&models.UserFavorite{},
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func doJSON(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func register(username, email, password string) string {
	raw, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	if err != nil {
		panic(err)
	}
	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	token, _ := result["token"].(string)
	return token
}

func createQuiz(t *testing.T, title string, maxAttempts int) uint {
	t.Helper()
	status, result := doJSON(t, "POST", "/api/admin/quizzes/", adminToken, map[string]interface{}{
		"title":        title,
		"description":  "test quiz",
		"category":     "Go",
		"time_limit":   1,
		"max_attempts": maxAttempts,
	})
	assert.Equal(t, fiber.StatusOK, status)
	quiz := result["quiz"].(map[string]interface{})
	return uint(quiz["ID"].(float64))
}

func addQuestion(t *testing.T, quizID uint, text, category string, correct int) uint {
	t.Helper()
	status, result := doJSON(t, "POST", fmt.Sprintf("/api/admin/quizzes/%d/questions", quizID), adminToken, map[string]interface{}{
		"question":       text,
		"options":        []string{"alpha", "beta", "gamma", "delta"},
		"correct_answer": correct,
		"category":       category,
	})
	assert.Equal(t, fiber.StatusOK, status)
	question := result["question"].(map[string]interface{})
	return uint(question["ID"].(float64))
}

func doJSONList(t *testing.T, path, token string) (int, []interface{}) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)

	var result []interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func TestRegisterAndLogin(t *testing.T) {
	status, result := doJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])
	assert.NotEmpty(t, result["user"])

	status, _ = doJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, result = doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])

	status, _ = doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLegacyPasswordMigration(t *testing.T) {
	legacyHash, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	user := models.User{
		Username:           "legacyuser",
		Email:              "legacy@example.com",
		LegacyPasswordHash: string(legacyHash),
	}
	assert.NoError(t, db.Create(&user).Error)

	status, result := doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "legacyuser",
		"password": "oldpassword",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])

	var migrated models.User
	db.First(&migrated, user.ID)
	assert.NotEmpty(t, migrated.PasswordHash)
	assert.Empty(t, migrated.LegacyPasswordHash)

	// Second login goes through the regular path
	status, _ = doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "legacyuser",
		"password": "oldpassword",
	})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestPasswordResetFlow(t *testing.T) {
	register("resetuser", "reset@example.com", "original")

	status, _ := doJSON(t, "POST", "/api/auth/reset-request", "", map[string]string{
		"email": "reset@example.com",
	})
	assert.Equal(t, fiber.StatusOK, status)

	var user models.User
	db.Where("username = ?", "resetuser").First(&user)
	var reset models.PasswordReset
	assert.NoError(t, db.Where("user_id = ?", user.ID).Order("created_at DESC").First(&reset).Error)

	status, _ = doJSON(t, "POST", "/api/auth/reset-confirm", "", map[string]string{
		"token":    reset.Token,
		"password": "changed",
	})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": "resetuser",
		"password": "changed",
	})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	status, _ := doJSON(t, "POST", "/api/admin/quizzes/", takerToken, map[string]interface{}{
		"title": "should fail",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, "GET", "/api/admin/users/", takerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestQuizTakerViewHidesAnswers(t *testing.T) {
	quizID := createQuiz(t, "Hidden Answers Quiz", 0)
	addQuestion(t, quizID, "Pick beta", "Go", 1)

	status, result := doJSON(t, "GET", fmt.Sprintf("/api/quizzes/%d", quizID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	quiz := result["quiz"].(map[string]interface{})
	questions := quiz["questions"].([]interface{})
	assert.Len(t, questions, 1)

	question := questions[0].(map[string]interface{})
	assert.NotContains(t, question, "correct_answer")
	assert.Len(t, question["options"].([]interface{}), 4)
}

func TestSubmitAttemptAllCorrect(t *testing.T) {
	quizID := createQuiz(t, "Perfect Score Quiz", 0)
	q1 := addQuestion(t, quizID, "First", "Math", 0)
	q2 := addQuestion(t, quizID, "Second", "Math", 2)
	q3 := addQuestion(t, quizID, "Third", "History", 3)

	status, result := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), takerToken, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": q1, "answer": 0},
			{"question_id": q2, "answer": 2},
			{"question_id": q3, "answer": 3},
		},
		"time_taken": 30,
	})
	assert.Equal(t, fiber.StatusOK, status)

	attempt := result["attempt"].(map[string]interface{})
	assert.Equal(t, float64(3), attempt["score"])
	assert.Equal(t, float64(3), attempt["total_questions"])
	assert.Equal(t, float64(100), attempt["percentage"])

	categories := attempt["categories"].([]interface{})
	for _, raw := range categories {
		stat := raw.(map[string]interface{})
		assert.Equal(t, "strong", stat["level"])
		assert.Equal(t, float64(100), stat["percentage"])
	}
}

func TestSubmitAttemptPartialAndUnanswered(t *testing.T) {
	quizID := createQuiz(t, "Partial Quiz", 0)
	q1 := addQuestion(t, quizID, "First", "Math", 1)
	addQuestion(t, quizID, "Never reached", "Math", 1)

	// Auto-submit style payload: only one of two questions answered
	status, result := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), takerToken, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": q1, "answer": 1},
		},
		"time_taken":     30,
		"auto_submitted": true,
	})
	assert.Equal(t, fiber.StatusOK, status)

	attempt := result["attempt"].(map[string]interface{})
	assert.Equal(t, float64(1), attempt["score"])
	assert.Equal(t, float64(2), attempt["total_questions"])
	assert.Equal(t, float64(50), attempt["percentage"])
	assert.Equal(t, true, attempt["auto_submitted"])

	// The stored result marks the unreached question as unanswered
	attemptID := int(attempt["id"].(float64))
	status, result = doJSON(t, "GET", fmt.Sprintf("/api/attempts/%d", attemptID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	answers := result["attempt"].(map[string]interface{})["answers"].([]interface{})
	assert.Len(t, answers, 2)
	unanswered := 0
	for _, raw := range answers {
		a := raw.(map[string]interface{})
		if a["selected_answer"].(float64) == -1 {
			unanswered++
			assert.Equal(t, false, a["is_correct"])
		}
	}
	assert.Equal(t, 1, unanswered)
}

func TestMaxAttemptsEnforced(t *testing.T) {
	quizID := createQuiz(t, "Single Attempt Quiz", 1)
	q1 := addQuestion(t, quizID, "Only", "Go", 0)

	payload := map[string]interface{}{
		"answers":    []map[string]interface{}{{"question_id": q1, "answer": 0}},
		"time_taken": 10,
	}

	status, _ := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), takerToken, payload)
	assert.Equal(t, fiber.StatusOK, status)

	status, result := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), takerToken, payload)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "No attempts left", result["error"])

	// The quiz listing reflects exhausted attempts
	status, details := doJSON(t, "GET", fmt.Sprintf("/api/quizzes/%d", quizID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, details["can_attempt"])
}

func TestTimeTakenClampedToLimit(t *testing.T) {
	quizID := createQuiz(t, "Timed Quiz", 0) // time_limit 1 minute
	q1 := addQuestion(t, quizID, "Quick", "Go", 0)

	status, result := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), takerToken, map[string]interface{}{
		"answers":    []map[string]interface{}{{"question_id": q1, "answer": 0}},
		"time_taken": 600, // way past the 60s limit
	})
	assert.Equal(t, fiber.StatusOK, status)

	attempt := result["attempt"].(map[string]interface{})
	assert.Equal(t, float64(60), attempt["time_taken"])
	assert.Equal(t, true, attempt["auto_submitted"])
}

func TestCSVImport(t *testing.T) {
	quizID := createQuiz(t, "Imported Quiz", 0)

	csv := "question,option_a,option_b,option_c,option_d,correct_answer,category\n" +
		"Q1?,a,b,c,d,A,Math\n" +
		"Q2?,a,b,c,d,C,History\n" +
		"bad row,missing\n"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "questions.csv")
	assert.NoError(t, err)
	part.Write([]byte(csv))
	writer.Close()

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/admin/quizzes/%d/questions/import", quizID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", adminToken)

	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, float64(2), result["imported"])
	assert.Equal(t, float64(1), result["skipped"])

	var count int64
	db.Model(&models.Question{}).Where("quiz_id = ?", quizID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestLeaderboard(t *testing.T) {
	quizID := createQuiz(t, "Leaderboard Quiz", 0)
	q1 := addQuestion(t, quizID, "One", "Go", 0)
	q2 := addQuestion(t, quizID, "Two", "Go", 1)

	doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), takerToken, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": q1, "answer": 0},
			{"question_id": q2, "answer": 1},
		},
		"time_taken": 15,
	})
	doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), adminToken, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": q1, "answer": 0},
			{"question_id": q2, "answer": 3},
		},
		"time_taken": 15,
	})

	status, result := doJSON(t, "GET", fmt.Sprintf("/api/leaderboard?quiz_id=%d", quizID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	entries := result["leaderboard"].([]interface{})
	assert.Len(t, entries, 2)

	first := entries[0].(map[string]interface{})
	assert.Equal(t, "taker", first["username"])
	assert.Equal(t, float64(100), first["percentage"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestFavorites(t *testing.T) {
	quizID := createQuiz(t, "Favorite Quiz", 0)

	status, result := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/favorite", quizID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["favorited"])

	var count int64
	db.Model(&models.UserFavorite{}).Where("quiz_id = ?", quizID).Count(&count)
	assert.Equal(t, int64(1), count)

	status, result = doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/favorite", quizID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, result["favorited"])

	// Re-favoriting after removal must work; the removed row may not linger
	// in the unique (user_id, quiz_id) index
	status, result = doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/favorite", quizID), takerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["favorited"])

	db.Model(&models.UserFavorite{}).Where("quiz_id = ?", quizID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestListQuizzesSearch(t *testing.T) {
	createQuiz(t, "Searchable Gopher Quiz", 0)

	status, quizzes := doJSONList(t, "/api/quizzes/?q=Gopher", takerToken)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, quizzes)
	for _, raw := range quizzes {
		quiz := raw.(map[string]interface{})
		assert.Contains(t, quiz["title"], "Gopher")
		assert.Equal(t, true, quiz["can_attempt"])
	}

	status, quizzes = doJSONList(t, "/api/quizzes/?q=NoSuchTitleAnywhere", takerToken)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, quizzes)

	status, attempts := doJSONList(t, "/api/attempts", takerToken)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, attempts)
}

func TestSharedQuizWithoutAuth(t *testing.T) {
	quizID := createQuiz(t, "Shared Quiz", 0)
	addQuestion(t, quizID, "Shared question", "Go", 2)

	status, result := doJSON(t, "POST", fmt.Sprintf("/api/quizzes/%d/share", quizID), adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	code := result["share_code"].(string)
	assert.NotEmpty(t, code)

	status, result = doJSON(t, "GET", "/api/shared/"+code, "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	quiz := result["quiz"].(map[string]interface{})
	assert.Equal(t, "Shared Quiz", quiz["title"])
	question := quiz["questions"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, question, "correct_answer")
}

func TestAnalyticsAndReport(t *testing.T) {
	status, result := doJSON(t, "GET", "/api/admin/analytics/", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, result["total_users"])
	assert.NotNil(t, result["total_attempts"])

	req := httptest.NewRequest("GET", "/api/admin/analytics/report", nil)
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "QuizHub Platform Report")
}

func TestAdminUserManagement(t *testing.T) {
	register("managed", "managed@example.com", "password")
	var managed models.User
	db.Where("username = ?", "managed").First(&managed)

	status, result := doJSON(t, "GET", "/api/admin/users/", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, result["data"])

	status, result = doJSON(t, "PUT", fmt.Sprintf("/api/admin/users/%d/role", managed.ID), adminToken, map[string]string{
		"role": "admin",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "admin", result["user"].(map[string]interface{})["role"])

	status, _ = doJSON(t, "PUT", fmt.Sprintf("/api/admin/users/%d/role", managed.ID), adminToken, map[string]string{
		"role": "superuser",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, "DELETE", fmt.Sprintf("/api/admin/users/%d", managed.ID), adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	var gone models.User
	err := db.First(&gone, managed.ID).Error
	assert.Error(t, err)
}

func TestDeletedUsernameReusable(t *testing.T) {
	register("recycled", "recycled@example.com", "password")
	var user models.User
	db.Where("username = ?", "recycled").First(&user)

	status, _ := doJSON(t, "DELETE", fmt.Sprintf("/api/admin/users/%d", user.ID), adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	// The deleted user's username and email are free for registration again
	status, result := doJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"username": "recycled",
		"email":    "recycled@example.com",
		"password": "password",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, result["token"])
}
