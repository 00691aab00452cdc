package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hhaamed74/promanager-api/internal/activity"
	"github.com/hhaamed74/promanager-api/internal/activitylog"
	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
	"github.com/hhaamed74/promanager-api/internal/storage"
)

// ProjectDeps wires a ProjectService.
type ProjectDeps struct {
	Projects       ProjectStore
	Uploader       storage.Uploader
	MaxUploadBytes int64
	Activity       ActivityPublisher
	Metrics        metrics.Recorder
	Logger         *slog.Logger
}

// ProjectService handles project business logic.
type ProjectService struct {
	projects ProjectStore
	images   imageStore
	activity ActivityPublisher
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(deps ProjectDeps) *ProjectService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Activity == nil {
		deps.Activity = activitylog.Discard{}
	}
	return &ProjectService{
		projects: deps.Projects,
		images:   imageStore{uploader: deps.Uploader, maxBytes: deps.MaxUploadBytes},
		activity: deps.Activity,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With("component", "service.project"),
	}
}

// CreateProjectInput defines input for creating a project.
// Empty enum fields and a nil image fall back to the model defaults.
type CreateProjectInput struct {
	Title       string
	Description string
	Status      model.ProjectStatus
	Priority    model.ProjectPriority
	Deadline    time.Time
	Category    model.ProjectCategory
	Image       *FileUpload
}

// Create creates a project owned by the principal.
func (s *ProjectService) Create(ctx context.Context, owner *model.Principal, input CreateProjectInput) (*model.Project, error) {
	if owner == nil {
		return nil, auth.ErrUnauthenticated
	}

	now := time.Now().UTC()
	project := &model.Project{
		ID:          ulid.Make().String(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		Category:    input.Category,
		OwnerID:     owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	project.ApplyDefaults()

	if err := validateProject(project); err != nil {
		return nil, err
	}

	if input.Image != nil {
		ref, err := s.images.store(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		project.Image = ref
	}

	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.metrics.IncProjectCreated()
	ownerName := owner.Name
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityProjectCreated, owner.ID, project.ID,
		activity.ProjectEvent(&model.ProjectWithOwner{Project: *project, OwnerName: &ownerName}).Text,
	))
	return project, nil
}

// List returns every project with its owner's display fields, newest first.
func (s *ProjectService) List(ctx context.Context) ([]*model.ProjectWithOwner, error) {
	return s.projects.ListProjects(ctx)
}

// ListMine returns the projects owned by ownerID, newest first.
func (s *ProjectService) ListMine(ctx context.Context, ownerID string) ([]*model.Project, error) {
	return s.projects.ListProjectsByOwner(ctx, ownerID)
}

// Get retrieves a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	return s.projects.GetProjectByID(ctx, id)
}

// UpdateProjectInput defines input for updating a project. Nil fields are left unchanged.
type UpdateProjectInput struct {
	Title       *string
	Description *string
	Status      *model.ProjectStatus
	Priority    *model.ProjectPriority
	Deadline    *time.Time
	Category    *model.ProjectCategory
	Image       *FileUpload
}

// Update changes a project. Only its owner or an admin may do so.
func (s *ProjectService) Update(ctx context.Context, actor *model.Principal, id string, input UpdateProjectInput) (*model.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeOwnerOrAdmin(actor, project.OwnerID); err != nil {
		return nil, err
	}

	if input.Title != nil {
		project.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.Priority != nil {
		project.Priority = *input.Priority
	}
	if input.Deadline != nil {
		project.Deadline = *input.Deadline
	}
	if input.Category != nil {
		project.Category = *input.Category
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	if input.Image != nil {
		ref, err := s.images.store(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		project.Image = ref
	}

	if err := s.projects.UpdateProject(ctx, project); err != nil {
		return nil, err
	}

	s.metrics.IncProjectUpdated()
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityProjectUpdated, actor.ID, project.ID, fmt.Sprintf("Project %q updated", project.Title),
	))
	return project, nil
}

// Delete removes a project. Only its owner or an admin may do so.
func (s *ProjectService) Delete(ctx context.Context, actor *model.Principal, id string) error {
	project, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.AuthorizeOwnerOrAdmin(actor, project.OwnerID); err != nil {
		return err
	}

	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return err
	}

	s.metrics.IncProjectDeleted()
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityProjectDeleted, actor.ID, id, fmt.Sprintf("Project %q deleted", project.Title),
	))
	return nil
}

// StatsForOwner returns the owner's total and completed project counts.
func (s *ProjectService) StatsForOwner(ctx context.Context, ownerID string) (*model.ProjectCounts, error) {
	var counts model.ProjectCounts

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts.Total, err = s.projects.CountProjects(gctx, repository.ProjectCountFilter{OwnerID: ownerID})
		return err
	})
	g.Go(func() (err error) {
		counts.Completed, err = s.projects.CountProjects(gctx, repository.ProjectCountFilter{
			OwnerID: ownerID,
			Status:  model.StatusCompleted,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	return &counts, nil
}

func validateProject(p *model.Project) error {
	switch {
	case p.Title == "":
		return ErrTitleRequired
	case utf8.RuneCountInString(p.Title) > model.MaxProjectTitleLength:
		return ErrTitleTooLong
	case p.Description == "":
		return ErrDescriptionRequired
	case p.Deadline.IsZero():
		return ErrDeadlineRequired
	case !p.Status.IsValid():
		return ErrInvalidStatus
	case !p.Priority.IsValid():
		return ErrInvalidPriority
	case !p.Category.IsValid():
		return ErrInvalidCategory
	}
	return nil
}
