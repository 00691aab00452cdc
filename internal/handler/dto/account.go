// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/hhaamed74/promanager-api/internal/model"
)

// RegisterRequest represents the request body for registering an account.
// A client-supplied role is ignored.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the JSON body for a profile update.
// Empty fields keep their current value.
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AccountResponse represents an account in API responses. It never carries
// the password hash.
type AccountResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Avatar    string     `json:"avatar"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success bool            `json:"success"`
	Token   string          `json:"token"`
	User    AccountResponse `json:"user"`
}

// ProfileResponse wraps the caller's account.
type ProfileResponse struct {
	Success bool            `json:"success"`
	User    AccountResponse `json:"user"`
}

// ToggleResponse reports the new active state of an account.
type ToggleResponse struct {
	Success bool   `json:"success"`
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// StatsResponse wraps the admin dashboard totals.
type StatsResponse struct {
	Success bool                 `json:"success"`
	Stats   model.DashboardStats `json:"stats"`
}

// ActivityResponse is a single entry of the recent-activity feed.
type ActivityResponse struct {
	Text string             `json:"text"`
	Time time.Time          `json:"time"`
	Type model.ActivityKind `json:"type"`
}

// ActivityLogResponse is a single persisted activity log entry.
type ActivityLogResponse struct {
	ID        string             `json:"id"`
	Type      model.ActivityType `json:"type"`
	ActorID   string             `json:"actor_id,omitempty"`
	SubjectID string             `json:"subject_id,omitempty"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"created_at"`
}

// DataResponse is the generic success envelope for list and object payloads.
type DataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// MessageResponse is returned by operations without a payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine-readable code and a human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToAccountResponse converts an Account model to AccountResponse DTO.
func ToAccountResponse(a *model.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Avatar:    a.Avatar,
		IsActive:  a.Active,
		CreatedAt: a.CreatedAt,
	}
}

// ToAccountListResponse converts a slice of accounts.
func ToAccountListResponse(accounts []*model.Account) DataResponse[[]AccountResponse] {
	data := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		data = append(data, ToAccountResponse(a))
	}
	return DataResponse[[]AccountResponse]{Success: true, Data: data}
}

// ToActivityListResponse converts feed events.
func ToActivityListResponse(events []model.ActivityEvent) DataResponse[[]ActivityResponse] {
	data := make([]ActivityResponse, 0, len(events))
	for _, e := range events {
		data = append(data, ActivityResponse{Text: e.Text, Time: e.Timestamp, Type: e.Kind})
	}
	return DataResponse[[]ActivityResponse]{Success: true, Data: data}
}

// ToActivityLogListResponse converts persisted activity log entries.
func ToActivityLogListResponse(entries []*model.ActivityLogEntry) DataResponse[[]ActivityLogResponse] {
	data := make([]ActivityLogResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, ActivityLogResponse{
			ID:        e.ID,
			Type:      e.Type,
			ActorID:   e.ActorID,
			SubjectID: e.SubjectID,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		})
	}
	return DataResponse[[]ActivityLogResponse]{Success: true, Data: data}
}
