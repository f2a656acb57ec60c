// Package inventory manages a team's parts. It shares the pager with tasks.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/events"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/validate"
	"github.com/splax/teamboard/pkg/config"
)

// CreateInput describes a new part.
type CreateInput struct {
	TeamID            string `json:"team_id"`
	Name              string `json:"name" validate:"nonblank,max=200"`
	PartNumber        string `json:"part_number" validate:"max=100"`
	Category          string `json:"category" validate:"max=100"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	PartID            string  `json:"-"`
	Name              *string `json:"name" validate:"omitnil,nonblank,max=200"`
	PartNumber        *string `json:"part_number" validate:"omitnil,max=100"`
	Category          *string `json:"category" validate:"omitnil,max=100"`
	Quantity          *int    `json:"quantity" validate:"omitnil,gte=0"`
	LowStockThreshold *int    `json:"low_stock_threshold" validate:"omitnil,gte=0"`
}

// Service applies part mutations and serves part queries.
type Service struct {
	parts  repository.PartRepository
	access access.Resolver
	events events.Publisher
	pager  paging.Pager[domain.Part]
	logger *slog.Logger
	now    func() time.Time
}

// New returns an inventory service.
func New(parts repository.PartRepository, resolver access.Resolver, publisher events.Publisher, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{
		parts:  parts,
		access: resolver,
		events: publisher,
		pager:  paging.NewPager[domain.Part](collection{parts: parts}, cfg.DefaultPageSize, cfg.MaxPageSize),
		logger: logger,
		now:    time.Now,
	}
}

// Create adds a part to the team's inventory.
func (s Service) Create(ctx context.Context, callerID string, input CreateInput) (*domain.Part, error) {
	if _, err := s.access.AuthorizeTeam(ctx, callerID, input.TeamID, domain.CapEditParts); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	now := domain.StorageTime(s.now())
	part := &domain.Part{
		ID:                uuid.NewString(),
		TeamID:            input.TeamID,
		Name:              strings.TrimSpace(input.Name),
		PartNumber:        strings.TrimSpace(input.PartNumber),
		Category:          strings.TrimSpace(input.Category),
		Quantity:          input.Quantity,
		LowStockThreshold: input.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.parts.CreatePart(ctx, part); err != nil {
		return nil, err
	}
	s.logger.Info("part created", "part_id", part.ID, "team_id", part.TeamID, "caller_id", callerID)
	s.publish(ctx, domain.ChangePartCreated, part)
	return part, nil
}

// Update edits a part.
func (s Service) Update(ctx context.Context, callerID string, input UpdateInput) (*domain.Part, error) {
	part, err := s.parts.GetPartByID(ctx, input.PartID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.AuthorizeTeam(ctx, callerID, part.TeamID, domain.CapEditParts); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	updated := *part
	if input.Name != nil {
		updated.Name = strings.TrimSpace(*input.Name)
	}
	if input.PartNumber != nil {
		updated.PartNumber = strings.TrimSpace(*input.PartNumber)
	}
	if input.Category != nil {
		updated.Category = strings.TrimSpace(*input.Category)
	}
	if input.Quantity != nil {
		updated.Quantity = *input.Quantity
	}
	if input.LowStockThreshold != nil {
		updated.LowStockThreshold = *input.LowStockThreshold
	}
	updated.UpdatedAt = domain.StorageTime(s.now())
	if err := s.parts.UpdatePart(ctx, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("part updated", "part_id", updated.ID, "team_id", updated.TeamID, "caller_id", callerID)
	s.publish(ctx, domain.ChangePartUpdated, &updated)
	return &updated, nil
}

// Delete removes a part. Deleting a part that is already gone succeeds.
func (s Service) Delete(ctx context.Context, callerID, partID string) error {
	part, err := s.parts.GetPartByID(ctx, partID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := s.access.AuthorizeTeam(ctx, callerID, part.TeamID, domain.CapDeleteParts); err != nil {
		return err
	}
	deleted, err := s.parts.DeletePart(ctx, part.ID)
	if err != nil || !deleted {
		return err
	}
	s.logger.Info("part deleted", "part_id", part.ID, "team_id", part.TeamID, "caller_id", callerID)
	s.publish(ctx, domain.ChangePartDeleted, part)
	return nil
}

// Page returns one page of a team's parts filtered by category and search.
func (s Service) Page(ctx context.Context, callerID string, filter paging.Filter, cursor string, limit int) (paging.Page[domain.Part], error) {
	if err := s.authorizeRead(ctx, callerID, filter, cursor != ""); err != nil {
		return paging.Page[domain.Part]{}, err
	}
	return s.pager.Page(ctx, filter, cursor, limit)
}

// OpenView returns an unloaded live view over a team's parts. It closes with
// ErrNotFound once the caller leaves the team.
func (s Service) OpenView(ctx context.Context, callerID string, filter paging.Filter, pageSize int) (*paging.View[domain.Part], error) {
	if err := s.authorizeRead(ctx, callerID, filter, false); err != nil {
		return nil, err
	}
	teamID := filter.Normalize().Scope
	return s.pager.Open(filter, pageSize).Guarded(func(ctx context.Context) error {
		_, err := s.access.AuthorizeTeam(ctx, callerID, teamID, domain.CapReadProject)
		return err
	}), nil
}

func (s Service) authorizeRead(ctx context.Context, callerID string, filter paging.Filter, resuming bool) error {
	filter = filter.Normalize()
	if _, err := s.access.AuthorizeTeam(ctx, callerID, filter.Scope, domain.CapReadProject); err != nil {
		if resuming && errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: team is gone", domain.ErrInvalidCursor)
		}
		return err
	}
	if filter.Status != "" {
		return fmt.Errorf("%w: parts have no status", domain.ErrInvalidInput)
	}
	return nil
}

// Stats summarises stock levels across the team's parts.
func (s Service) Stats(ctx context.Context, callerID, teamID string) (domain.InventoryStats, error) {
	parts, err := s.all(ctx, callerID, teamID)
	if err != nil {
		return domain.InventoryStats{}, err
	}
	var stats domain.InventoryStats
	for _, part := range parts {
		stats.TotalParts++
		stats.TotalQuantity += part.Quantity
		switch {
		case part.OutOfStock():
			stats.OutOfStockCount++
		case part.LowStock():
			stats.LowStockCount++
		}
	}
	return stats, nil
}

// Categories lists the distinct non-empty categories in use, sorted.
func (s Service) Categories(ctx context.Context, callerID, teamID string) ([]string, error) {
	parts, err := s.all(ctx, callerID, teamID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, part := range parts {
		if part.Category == "" {
			continue
		}
		if _, ok := seen[part.Category]; ok {
			continue
		}
		seen[part.Category] = struct{}{}
		categories = append(categories, part.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s Service) all(ctx context.Context, callerID, teamID string) ([]domain.Part, error) {
	if _, err := s.access.AuthorizeTeam(ctx, callerID, teamID, domain.CapReadProject); err != nil {
		return nil, err
	}
	return s.parts.ListAllParts(ctx, teamID)
}

func (s Service) publish(ctx context.Context, kind domain.ChangeKind, part *domain.Part) {
	if s.events == nil {
		return
	}
	event := domain.ChangeEvent{Kind: kind, Scope: part.TeamID, EntityID: part.ID, At: s.now().UTC()}
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish change", "kind", kind, "part_id", part.ID, "error", err)
	}
}
