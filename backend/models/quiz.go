package models

import "gorm.io/gorm"

type Quiz struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Category    string
	TimeLimit   int // minutes, 0 = untimed
	MaxAttempts int // 0 = unlimited
	CreatedBy   uint
	ShareCode   string `gorm:"uniqueIndex"`
	Questions   []Question
}

type Question struct {
	gorm.Model
	QuizID        uint `gorm:"index"`
	Question      string
	Options       string // JSON array of 4 options
	CorrectAnswer int    // index into Options, 0-3
	Category      string
}

type UserFavorite struct {
	gorm.Model
	UserID uint `gorm:"index:idx_user_quiz,unique"`
	QuizID uint `gorm:"index:idx_user_quiz,unique"`
}
