// Package activity builds the admin notification feed from recent accounts and projects.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/hhaamed74/promanager-api/internal/model"
)

const (
	DefaultLimitPerSource = 5
	DefaultLimitTotal     = 5
)

// UnknownOwner replaces the owner name of a project whose account is gone.
const UnknownOwner = "an unknown user"

// ErrSourceUnavailable is returned when either upstream source fails.
// No partial feed is ever returned alongside it.
var ErrSourceUnavailable = errors.New("activity source unavailable")

// AccountSource returns the most recently created accounts, newest first.
type AccountSource interface {
	RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error)
}

// ProjectSource returns the most recently created projects, newest first.
type ProjectSource interface {
	RecentProjects(ctx context.Context, limit int) ([]*model.ProjectWithOwner, error)
}

// Feed merges account and project creation events.
type Feed struct {
	accounts AccountSource
	projects ProjectSource
	logger   *slog.Logger
}

// NewFeed creates a new Feed.
func NewFeed(accounts AccountSource, projects ProjectSource, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{accounts: accounts, projects: projects, logger: logger}
}

// RecentActivity returns at most limitTotal events ordered newest first.
// Non-positive limits fall back to the defaults.
func (f *Feed) RecentActivity(ctx context.Context, limitPerSource, limitTotal int) ([]model.ActivityEvent, error) {
	if limitPerSource <= 0 {
		limitPerSource = DefaultLimitPerSource
	}
	if limitTotal <= 0 {
		limitTotal = DefaultLimitTotal
	}

	ctx, span := otel.Tracer("github.com/hhaamed74/promanager-api/internal/activity").Start(ctx, "activity.RecentActivity")
	defer span.End()
	span.SetAttributes(
		attribute.Int("feed.limit_per_source", limitPerSource),
		attribute.Int("feed.limit_total", limitTotal),
	)

	var (
		accounts []*model.Account
		projects []*model.ProjectWithOwner
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = f.accounts.RecentAccounts(gctx, limitPerSource)
		if err != nil {
			return fmt.Errorf("recent accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		projects, err = f.projects.RecentProjects(gctx, limitPerSource)
		if err != nil {
			return fmt.Errorf("recent projects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		f.logger.WarnContext(ctx, "activity feed source failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	events := make([]model.ActivityEvent, 0, len(accounts)+len(projects))
	for _, a := range accounts {
		events = append(events, AccountEvent(a))
	}
	for _, p := range projects {
		events = append(events, ProjectEvent(p))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if len(events) > limitTotal {
		events = events[:limitTotal]
	}
	span.SetAttributes(attribute.Int("feed.events", len(events)))
	return events, nil
}

// AccountEvent projects an account registration into a feed event.
func AccountEvent(a *model.Account) model.ActivityEvent {
	return model.ActivityEvent{
		Text:      "New user joined: " + a.Name,
		Timestamp: a.CreatedAt,
		Kind:      model.ActivityKindUser,
	}
}

// ProjectEvent projects a project creation into a feed event.
func ProjectEvent(p *model.ProjectWithOwner) model.ActivityEvent {
	owner := UnknownOwner
	if p.OwnerName != nil && strings.TrimSpace(*p.OwnerName) != "" {
		owner = *p.OwnerName
	}
	return model.ActivityEvent{
		Text:      `New project "` + p.Title + `" added by ` + owner,
		Timestamp: p.CreatedAt,
		Kind:      model.ActivityKindProject,
	}
}
