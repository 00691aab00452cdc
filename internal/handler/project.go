package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/handler/dto"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/service"
)

// ProjectService is the project behaviour the HTTP layer needs.
// *service.ProjectService implements it.
type ProjectService interface {
	Create(ctx context.Context, owner *model.Principal, input service.CreateProjectInput) (*model.Project, error)
	List(ctx context.Context) ([]*model.ProjectWithOwner, error)
	ListMine(ctx context.Context, ownerID string) ([]*model.Project, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	Update(ctx context.Context, actor *model.Principal, id string, input service.UpdateProjectInput) (*model.Project, error)
	Delete(ctx context.Context, actor *model.Principal, id string) error
	StatsForOwner(ctx context.Context, ownerID string) (*model.ProjectCounts, error)
}

// ProjectHandler handles HTTP requests for project operations.
type ProjectHandler struct {
	svc    ProjectService
	logger *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		svc:    svc,
		logger: logger.With("component", "handler.project"),
	}
}

// Create handles POST /api/projects.
// Accepts JSON, or a multipart form with an optional "image" file.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := createProjectInput(r)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	owner := auth.PrincipalFromContext(r.Context())
	project, err := h.svc.Create(r.Context(), owner, input)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project_created",
		slog.String("project_id", project.ID),
		slog.String("owner_id", project.OwnerID),
		slog.Bool("has_image", input.Image != nil),
	)

	writeJSON(w, http.StatusCreated, dto.ProjectMessageResponse{
		Success: true,
		Message: "Project created",
		Data:    dto.ToProjectResponse(project),
	})
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context())
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProjectWithOwnerListResponse(projects))
}

// ListMine handles GET /api/projects/my-projects.
func (h *ProjectHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListMine(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProjectListResponse(projects))
}

// Stats handles GET /api/projects/stats/count.
func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.StatsForOwner(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DataResponse[model.ProjectCounts]{Success: true, Data: *counts})
}

// Get handles GET /api/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DataResponse[dto.ProjectResponse]{Success: true, Data: dto.ToProjectResponse(project)})
}

// Update handles PUT /api/projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	input, err := updateProjectInput(r)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	project, err := h.svc.Update(r.Context(), auth.PrincipalFromContext(r.Context()), id, input)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project_updated", slog.String("project_id", id))

	writeJSON(w, http.StatusOK, dto.DataResponse[dto.ProjectResponse]{Success: true, Data: dto.ToProjectResponse(project)})
}

// Delete handles DELETE /api/projects/{id}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), auth.PrincipalFromContext(r.Context()), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project_deleted", slog.String("project_id", id))

	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Project deleted"})
}

func createProjectInput(r *http.Request) (service.CreateProjectInput, error) {
	var (
		req   dto.CreateProjectRequest
		image *service.FileUpload
	)

	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			return service.CreateProjectInput{}, err
		}
		req = dto.CreateProjectRequest{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Status:      r.FormValue("status"),
			Priority:    r.FormValue("priority"),
			Deadline:    r.FormValue("deadline"),
			Category:    r.FormValue("category"),
		}
		var err error
		if image, err = formFile(r, "image"); err != nil {
			return service.CreateProjectInput{}, err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return service.CreateProjectInput{}, err
	}

	deadline, err := dto.ParseDeadline(req.Deadline)
	if err != nil {
		return service.CreateProjectInput{}, err
	}

	return service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.ProjectStatus(req.Status),
		Priority:    model.ProjectPriority(req.Priority),
		Deadline:    deadline,
		Category:    model.ProjectCategory(req.Category),
		Image:       image,
	}, nil
}

func updateProjectInput(r *http.Request) (service.UpdateProjectInput, error) {
	var (
		req   dto.UpdateProjectRequest
		image *service.FileUpload
	)

	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			return service.UpdateProjectInput{}, err
		}
		req = dto.UpdateProjectRequest{
			Title:       formValue(r, "title"),
			Description: formValue(r, "description"),
			Status:      formValue(r, "status"),
			Priority:    formValue(r, "priority"),
			Deadline:    formValue(r, "deadline"),
			Category:    formValue(r, "category"),
		}
		var err error
		if image, err = formFile(r, "image"); err != nil {
			return service.UpdateProjectInput{}, err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return service.UpdateProjectInput{}, err
	}

	input := service.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Image:       image,
	}
	if req.Status != nil {
		status := model.ProjectStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := model.ProjectPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.Category != nil {
		category := model.ProjectCategory(*req.Category)
		input.Category = &category
	}
	if req.Deadline != nil {
		deadline, err := dto.ParseDeadline(*req.Deadline)
		if err != nil {
			return service.UpdateProjectInput{}, err
		}
		input.Deadline = &deadline
	}
	return input, nil
}

// formValue returns a pointer to a multipart field value, or nil when the
// field was not sent.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
