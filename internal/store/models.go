package store

import (
	"time"

	"github.com/michaeltuccillo/taskd/internal/task"
)

// User is the persisted account record. Password holds the bcrypt hash,
// never the submitted plaintext.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:320;not null"`
	Username  string `gorm:"size:120;not null"`
	Password  string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

// Task is a to-do item. UserID is nil for tasks created without a session.
type Task struct {
	ID        uint          `gorm:"primaryKey"`
	Name      string        `gorm:"size:255;not null"`
	DueDate   time.Time     `gorm:"not null;index"`
	Category  task.Category `gorm:"size:16;not null"`
	UserID    *uint         `gorm:"index"`
	User      *User         `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Task) TableName() string { return "tasks" }
