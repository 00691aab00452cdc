package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hhaamed74/promanager-api/internal/model"
)

// ErrProjectNotFound is returned when no project matches.
var ErrProjectNotFound = errors.New("project not found")

// ProjectCountFilter narrows CountProjects.
type ProjectCountFilter struct {
	OwnerID string
	Status  model.ProjectStatus
}

const projectColumns = `p.id, p.title, p.description, p.status, p.priority, p.deadline, p.category, p.image, p.owner_id, p.created_at, p.updated_at`

// CreateProject inserts a new project.
func (r *Repository) CreateProject(ctx context.Context, p *model.Project) error {
	query := `
		INSERT INTO projects (id, title, description, status, priority, deadline, category, image, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.Status,
		p.Priority,
		p.Deadline,
		p.Category,
		p.Image,
		p.OwnerID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a project by ID.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return p, nil
}

// ListProjects returns every project with its owner, newest first.
func (r *Repository) ListProjects(ctx context.Context) ([]*model.ProjectWithOwner, error) {
	query := `
		SELECT ` + projectColumns + `, a.name, a.avatar
		FROM projects p
		LEFT JOIN accounts a ON a.id = p.owner_id
		ORDER BY p.created_at DESC, p.id DESC
	`
	return r.queryProjectsWithOwner(ctx, query)
}

// RecentProjects returns the most recently created projects with their
// owner's name, newest first. OwnerName is nil for orphaned projects.
func (r *Repository) RecentProjects(ctx context.Context, limit int) ([]*model.ProjectWithOwner, error) {
	query := `
		SELECT ` + projectColumns + `, a.name, a.avatar
		FROM projects p
		LEFT JOIN accounts a ON a.id = p.owner_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1
	`
	return r.queryProjectsWithOwner(ctx, query, limit)
}

// ListProjectsByOwner returns an account's projects, newest first.
func (r *Repository) ListProjectsByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects p
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC, p.id DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProject updates a project's mutable fields. The owner never changes.
func (r *Repository) UpdateProject(ctx context.Context, p *model.Project) error {
	query := `
		UPDATE projects
		SET title = $2, description = $3, status = $4, priority = $5,
		    deadline = $6, category = $7, image = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.Status,
		p.Priority,
		p.Deadline,
		p.Category,
		p.Image,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// DeleteProject removes a project.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// CountProjects counts projects matching the filter. Empty fields match all.
func (r *Repository) CountProjects(ctx context.Context, filter ProjectCountFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM projects WHERE TRUE`
	args := []any{}
	argIndex := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIndex)
		args = append(args, filter.OwnerID)
		argIndex++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
	}

	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

func (r *Repository) queryProjectsWithOwner(ctx context.Context, query string, args ...any) ([]*model.ProjectWithOwner, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*model.ProjectWithOwner, 0)
	for rows.Next() {
		var pw model.ProjectWithOwner
		err := rows.Scan(
			&pw.ID,
			&pw.Title,
			&pw.Description,
			&pw.Status,
			&pw.Priority,
			&pw.Deadline,
			&pw.Category,
			&pw.Image,
			&pw.OwnerID,
			&pw.CreatedAt,
			&pw.UpdatedAt,
			&pw.OwnerName,
			&pw.OwnerAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &pw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Status,
		&p.Priority,
		&p.Deadline,
		&p.Category,
		&p.Image,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
