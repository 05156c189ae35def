package models

import (
	"time"

	"gorm.io/gorm"
)

// QuizAttempt is written once when a run is submitted (or auto-submitted on
// timer expiry) and never updated afterwards.
type QuizAttempt struct {
	gorm.Model
	UserID         uint `gorm:"index"`
	QuizID         uint `gorm:"index"`
	Score          int
	TotalQuestions int
	Percentage     int
	Answers        string // JSON array of UserAnswer
	TimeTaken      int    // seconds
	AutoSubmitted  bool
	CompletedAt    time.Time
}

// UserAnswer is the per-question record embedded in QuizAttempt.Answers.
// Question text, options and the correct index are denormalized so results
// stay readable after a quiz is edited or deleted.
type UserAnswer struct {
	QuestionID     uint     `json:"question_id"`
	SelectedAnswer int      `json:"selected_answer"` // -1 = not answered
	IsCorrect      bool     `json:"is_correct"`
	Category       string   `json:"category"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  int      `json:"correct_answer"`
}
