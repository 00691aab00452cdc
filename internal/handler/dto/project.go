package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/hhaamed74/promanager-api/internal/model"
)

// ErrInvalidDeadline is returned when a deadline is neither RFC 3339 nor YYYY-MM-DD.
var ErrInvalidDeadline = errors.New("deadline must be RFC 3339 or YYYY-MM-DD")

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Deadline    string `json:"deadline"`
	Category    string `json:"category,omitempty"`
}

// UpdateProjectRequest represents the request body for updating a project.
// Absent fields are left unchanged.
type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      model.ProjectStatus   `json:"status"`
	Priority    model.ProjectPriority `json:"priority"`
	Deadline    time.Time             `json:"deadline"`
	Category    model.ProjectCategory `json:"category"`
	Image       string                `json:"image"`
	OwnerID     string                `json:"owner_id"`
	Owner       *OwnerResponse        `json:"owner,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// OwnerResponse carries the owner's display fields on project listings.
// Name is null when the owner account no longer exists.
type OwnerResponse struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

// ProjectMessageResponse is returned when a project is created.
type ProjectMessageResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    ProjectResponse `json:"data"`
}

// ParseDeadline accepts an RFC 3339 timestamp or a calendar date.
// An empty string yields the zero time.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDeadline
}

// ToProjectResponse converts a Project model to ProjectResponse DTO.
func ToProjectResponse(p *model.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
		Deadline:    p.Deadline,
		Category:    p.Category,
		Image:       p.Image,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProjectListResponse converts projects owned by a single account.
func ToProjectListResponse(projects []*model.Project) DataResponse[[]ProjectResponse] {
	data := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		data = append(data, ToProjectResponse(p))
	}
	return DataResponse[[]ProjectResponse]{Success: true, Data: data}
}

// ToProjectWithOwnerListResponse converts projects joined with their owners.
func ToProjectWithOwnerListResponse(projects []*model.ProjectWithOwner) DataResponse[[]ProjectResponse] {
	data := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp := ToProjectResponse(&p.Project)
		resp.Owner = &OwnerResponse{Name: p.OwnerName, Avatar: p.OwnerAvatar}
		data = append(data, resp)
	}
	return DataResponse[[]ProjectResponse]{Success: true, Data: data}
}
