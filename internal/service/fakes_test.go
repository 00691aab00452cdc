package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hhaamed74/promanager-api/internal/activitylog"
	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
	"github.com/hhaamed74/promanager-api/internal/storage"
)

// memStore is an in-memory AccountStore and ProjectStore.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	projects map[string]*model.Project
	getByID  int
	failWith error
	// afterGet runs once after GetAccountByID has copied the row.
	afterGet func()
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*model.Account),
		projects: make(map[string]*model.Project),
	}
}

func (m *memStore) CreateAccount(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return repository.ErrEmailExists
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	m.getByID++
	if m.failWith != nil {
		m.mu.Unlock()
		return nil, m.failWith
	}
	a, ok := m.accounts[id]
	if !ok {
		m.mu.Unlock()
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	hook := m.afterGet
	m.afterGet = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *memStore) ListAccounts(_ context.Context) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) UpdateAccountProfile(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return repository.ErrAccountNotFound
	}
	for id, existing := range m.accounts {
		if id != a.ID && strings.EqualFold(existing.Email, a.Email) {
			return repository.ErrEmailExists
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) SetAccountActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Active = active
	return nil
}

func (m *memStore) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memStore) CountAccounts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.accounts)), nil
}

func (m *memStore) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memStore) GetProjectByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProjects(_ context.Context) ([]*model.ProjectWithOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ProjectWithOwner, 0, len(m.projects))
	for _, p := range m.projects {
		pw := &model.ProjectWithOwner{Project: *p}
		if a, ok := m.accounts[p.OwnerID]; ok {
			name := a.Name
			pw.OwnerName = &name
		}
		out = append(out, pw)
	}
	return out, nil
}

func (m *memStore) ListProjectsByOwner(_ context.Context, ownerID string) ([]*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Project
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return repository.ErrProjectNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memStore) CountProjects(_ context.Context, f repository.ProjectCountFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.projects {
		if f.OwnerID != "" && p.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		n++
	}
	return n, nil
}

// memCache is an in-memory AccountCache with the same lease rules as Redis.
type memCache struct {
	mu      sync.Mutex
	entries map[string]model.Account
	leases  map[string]string
	seq     int
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{
		entries: make(map[string]model.Account),
		leases:  make(map[string]string),
	}
}

func (c *memCache) GetAccount(_ context.Context, id string) (*model.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (c *memCache) LeaseAccount(_ context.Context, id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.leases[id]; held {
		return "", nil
	}
	c.seq++
	lease := fmt.Sprintf("lease-%d", c.seq)
	c.leases[id] = lease
	return lease, nil
}

func (c *memCache) SetAccount(_ context.Context, a *model.Account, lease string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lease == "" || c.leases[a.ID] != lease {
		return false, nil
	}
	cp := *a
	cp.PasswordHash = ""
	c.entries[a.ID] = cp
	delete(c.leases, a.ID)
	return true, nil
}

func (c *memCache) DeleteAccount(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	delete(c.leases, id)
	c.deletes = append(c.deletes, id)
	return nil
}

// subjectVerifier accepts any token as the given subject.
type subjectVerifier string

func (v subjectVerifier) Verify(string) (*auth.TokenClaims, error) {
	return &auth.TokenClaims{Subject: string(v)}, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(accountID string) (string, error) {
	return "token-for-" + accountID, nil
}

// recordingPublisher captures published events synchronously.
type recordingPublisher struct {
	mu     sync.Mutex
	events []activitylog.Event
}

func (p *recordingPublisher) PublishAsync(e activitylog.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []model.ActivityType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ActivityType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) has(t model.ActivityType) bool {
	return slices.Contains(p.types(), t)
}

// memUploader stores uploads in memory.
type memUploader struct {
	stored []storage.Metadata
	err    error
}

func (u *memUploader) Store(_ context.Context, _ []byte, meta storage.Metadata) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.stored = append(u.stored, meta)
	return "/uploads/test/" + meta.Filename, nil
}

var errBoom = errors.New("boom")

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
