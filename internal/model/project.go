package model

import "time"

// ProjectStatus is the workflow state of a project.
type ProjectStatus string

const (
	StatusPending    ProjectStatus = "pending"
	StatusInProgress ProjectStatus = "in-progress"
	StatusCompleted  ProjectStatus = "completed"
)

// IsValid checks if the status is known.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ProjectPriority ranks projects.
type ProjectPriority string

const (
	PriorityLow    ProjectPriority = "low"
	PriorityMedium ProjectPriority = "medium"
	PriorityHigh   ProjectPriority = "high"
)

// IsValid checks if the priority is known.
func (p ProjectPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ProjectCategory is the closed set of project categories.
type ProjectCategory string

const (
	CategoryProgramming ProjectCategory = "programming"
	CategoryDesign      ProjectCategory = "design"
	CategoryMarketing   ProjectCategory = "marketing"
	CategoryManagement  ProjectCategory = "management"
	CategoryOther       ProjectCategory = "other"
)

// IsValid checks if the category is known.
func (c ProjectCategory) IsValid() bool {
	switch c {
	case CategoryProgramming, CategoryDesign, CategoryMarketing, CategoryManagement, CategoryOther:
		return true
	}
	return false
}

// DefaultProjectImage is used when a project is created without an image.
const DefaultProjectImage = "https://via.placeholder.com/800x400?text=No+Project+Image"

// MaxProjectTitleLength is the maximum title length in characters.
const MaxProjectTitleLength = 100

// Project is a unit of tracked work owned by one account.
type Project struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      ProjectStatus   `json:"status"`
	Priority    ProjectPriority `json:"priority"`
	Deadline    time.Time       `json:"deadline"`
	Category    ProjectCategory `json:"category"`
	Image       string          `json:"image"`
	OwnerID     string          `json:"owner_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ApplyDefaults fills unset enum and image fields.
func (p *Project) ApplyDefaults() {
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Category == "" {
		p.Category = CategoryOther
	}
	if p.Image == "" {
		p.Image = DefaultProjectImage
	}
}

// IsOwnedBy reports whether the account owns the project.
func (p *Project) IsOwnedBy(accountID string) bool {
	return p.OwnerID == accountID
}

// ProjectWithOwner is a project joined with its owner's display fields.
// OwnerName is nil when the owning account no longer exists.
type ProjectWithOwner struct {
	Project
	OwnerName   *string `json:"owner_name"`
	OwnerAvatar *string `json:"owner_avatar,omitempty"`
}

// ProjectCounts holds aggregate project totals.
type ProjectCounts struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
}
