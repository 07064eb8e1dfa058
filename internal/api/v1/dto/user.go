package dto

import (
	"time"

	"github.com/jduhalde/consulting/internal/model"
)

// UserResponseDTO is the caller-facing view of their own account.
type UserResponseDTO struct {
	UserID                 string         `json:"user_id"`
	Email                  string         `json:"email"`
	DisplayName            string         `json:"display_name"`
	Company                string         `json:"company"`
	Industry               string         `json:"industry"`
	Role                   string         `json:"role"`
	Status                 string         `json:"status"`
	Features               []string       `json:"features"`
	TotalCostThisMonth     float64        `json:"total_cost_this_month"`
	TotalRequestsThisMonth int            `json:"total_requests_this_month"`
	Settings               map[string]any `json:"settings,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// UserUpdateDTO carries the updatable profile fields. Absent fields are
// left unchanged.
type UserUpdateDTO struct {
	DisplayName *string        `json:"display_name" validate:"omitempty,max=127"`
	Company     *string        `json:"company" validate:"omitempty,max=127"`
	Industry    *string        `json:"industry" validate:"omitempty,max=127"`
	Settings    map[string]any `json:"settings"`
}

// UsageResponseDTO summarizes this month's consumption.
type UsageResponseDTO struct {
	TotalCost     float64 `json:"total_cost"`
	TotalRequests int     `json:"total_requests"`
	MonthlyLimit  float64 `json:"monthly_limit"`
	Remaining     float64 `json:"remaining"`
}

// NewUserResponseDTO converts a user model into its API shape.
func NewUserResponseDTO(u *model.User) UserResponseDTO {
	features := u.Features
	if features == nil {
		features = []string{}
	}
	return UserResponseDTO{
		UserID:                 u.UserID,
		Email:                  u.Email,
		DisplayName:            u.DisplayName,
		Company:                u.Company,
		Industry:               u.Industry,
		Role:                   string(u.Role),
		Status:                 string(u.Status),
		Features:               features,
		TotalCostThisMonth:     u.TotalCostThisMonth,
		TotalRequestsThisMonth: u.TotalRequestsThisMonth,
		Settings:               u.Settings,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}
