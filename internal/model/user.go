package model

import (
	"slices"
	"time"
)

// Role classifies an account tier. The role determines feature
// entitlements and the monthly spending ceiling.
type Role string

const (
	RoleClientDemo       Role = "client_demo"
	RoleClientBasic      Role = "client_basic"
	RoleClientPro        Role = "client_pro"
	RoleClientEnterprise Role = "client_enterprise"
	RoleAdmin            Role = "admin"
)

// AccountStatus is the billing state of an account.
type AccountStatus string

const (
	StatusTrial     AccountStatus = "trial"
	StatusPaid      AccountStatus = "paid"
	StatusSuspended AccountStatus = "suspended"
	StatusCancelled AccountStatus = "cancelled"
)

// Active reports whether the account may submit jobs.
func (s AccountStatus) Active() bool {
	return s == StatusTrial || s == StatusPaid
}

// User represents a tenant account. Monthly counters are reset externally
// at the start of each billing period and only ever incremented here.
type User struct {
	UserID                 string         `db:"user_id" json:"user_id"`
	Email                  string         `db:"email" json:"email"`
	DisplayName            string         `db:"display_name" json:"display_name"`
	Company                string         `db:"company" json:"company"`
	Industry               string         `db:"industry" json:"industry"`
	Role                   Role           `db:"role" json:"role"`
	Status                 AccountStatus  `db:"status" json:"status"`
	Features               []string       `db:"features" json:"features"`
	TotalCostThisMonth     float64        `db:"total_cost_this_month" json:"total_cost_this_month"`
	TotalRequestsThisMonth int            `db:"total_requests_this_month" json:"total_requests_this_month"`
	Settings               map[string]any `db:"settings" json:"settings,omitempty"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updated_at"`
}

// HasFeature reports whether the user is entitled to the given agent.
// Admins have access to everything.
func (u *User) HasFeature(agentID string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return slices.Contains(u.Features, agentID)
}
