package model

import (
	"time"

	"github.com/google/uuid"
)

// Test represents an entrance test an admin has set up.
type Test struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	DurationMinutes   int       `json:"duration_minutes"`
	TotalMarks        float64   `json:"total_marks"`
	PassingPercentage float64   `json:"passing_percentage"`
	IsPublished       bool      `json:"is_published"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title             string  `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes   int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	PassingPercentage float64 `json:"passing_percentage" binding:"min=0,max=100"`
}

// UpdateTestRequest is the payload for updating an existing test.
type UpdateTestRequest struct {
	Title             string   `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes   *int     `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	PassingPercentage *float64 `json:"passing_percentage" binding:"omitempty,min=0,max=100"`
}
