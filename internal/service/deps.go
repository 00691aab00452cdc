package service

import (
	"context"
	"fmt"

	"github.com/hhaamed74/promanager-api/internal/activitylog"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
	"github.com/hhaamed74/promanager-api/internal/storage"
)

// AccountStore persists accounts. *repository.Repository implements it.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	UpdateAccountProfile(ctx context.Context, a *model.Account) error
	SetAccountActive(ctx context.Context, id string, active bool) error
	DeleteAccount(ctx context.Context, id string) error
	CountAccounts(ctx context.Context) (int64, error)
}

// ProjectStore persists projects. *repository.Repository implements it.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]*model.ProjectWithOwner, error)
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]*model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id string) error
	CountProjects(ctx context.Context, filter repository.ProjectCountFilter) (int64, error)
}

// AccountCache holds account snapshots. *cache.Cache implements it.
// GetAccount returns nil, nil on a miss. SetAccount only writes while the
// lease from LeaseAccount is held; DeleteAccount revokes the lease.
type AccountCache interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	LeaseAccount(ctx context.Context, id string) (string, error)
	SetAccount(ctx context.Context, a *model.Account, lease string) (bool, error)
	DeleteAccount(ctx context.Context, id string) error
}

// TokenIssuer signs bearer tokens. *auth.TokenManager implements it.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// ActivityPublisher records activity events without blocking.
type ActivityPublisher interface {
	PublishAsync(event activitylog.Event)
}

// FileUpload is an uploaded image as received from the client.
type FileUpload struct {
	Data     []byte
	Filename string
}

// imageStore validates and stores uploaded images.
type imageStore struct {
	uploader storage.Uploader
	maxBytes int64
}

func (s imageStore) store(ctx context.Context, f *FileUpload) (string, error) {
	meta := storage.Metadata{Filename: f.Filename, Size: int64(len(f.Data))}

	contentType, err := storage.ValidateImage(f.Data, meta, s.maxBytes)
	if err != nil {
		return "", err
	}
	meta.ContentType = contentType

	ref, err := s.uploader.Store(ctx, f.Data, meta)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return ref, nil
}
