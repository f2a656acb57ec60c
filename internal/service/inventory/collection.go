package inventory

import (
	"context"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/service/paging"
)

type collection struct {
	parts repository.PartRepository
}

func (c collection) List(ctx context.Context, query domain.ListQuery) ([]domain.Part, error) {
	return c.parts.ListParts(ctx, query)
}

func (c collection) Get(ctx context.Context, id string) (domain.Part, error) {
	part, err := c.parts.GetPartByID(ctx, id)
	if err != nil {
		return domain.Part{}, err
	}
	return *part, nil
}

func (c collection) Key(part domain.Part) domain.SortKey {
	return part.Key()
}

func (c collection) Matches(part domain.Part, filter paging.Filter) bool {
	if part.TeamID != filter.Scope {
		return false
	}
	if filter.Category != "" && part.Category != filter.Category {
		return false
	}
	return part.MatchesSearch(filter.Search)
}

func (c collection) Handles(kind domain.ChangeKind) bool {
	switch kind {
	case domain.ChangePartCreated, domain.ChangePartUpdated, domain.ChangePartDeleted:
		return true
	}
	return false
}
