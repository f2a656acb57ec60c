package memory

import (
	"context"
	"sort"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

// CreatePart inserts a part under an existing team.
func (s *Store) CreatePart(_ context.Context, part *domain.Part) error {
	if part == nil || part.Quantity < 0 || part.LowStockThreshold < 0 {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[part.TeamID]; !ok {
		return repository.ErrNotFound
	}
	s.parts[part.ID] = *part
	return nil
}

// GetPartByID fetches a part.
func (s *Store) GetPartByID(_ context.Context, partID string) (*domain.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	part, ok := s.parts[partID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &part, nil
}

// UpdatePart overwrites the mutable fields of a part.
func (s *Store) UpdatePart(_ context.Context, part *domain.Part) error {
	if part == nil || part.Quantity < 0 || part.LowStockThreshold < 0 {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.parts[part.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = part.Name
	existing.PartNumber = part.PartNumber
	existing.Category = part.Category
	existing.Quantity = part.Quantity
	existing.LowStockThreshold = part.LowStockThreshold
	existing.UpdatedAt = part.UpdatedAt
	s.parts[part.ID] = existing
	return nil
}

// DeletePart removes a part; deleting a missing part reports false.
func (s *Store) DeletePart(_ context.Context, partID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[partID]; !ok {
		return false, nil
	}
	delete(s.parts, partID)
	return true, nil
}

// ListParts returns the ordered slice of a team's parts selected by query.
func (s *Store) ListParts(_ context.Context, query domain.ListQuery) ([]domain.Part, error) {
	s.mu.RLock()
	matched := make([]domain.Part, 0)
	for _, part := range s.parts {
		if part.TeamID != query.Scope {
			continue
		}
		if query.Category != "" && part.Category != query.Category {
			continue
		}
		if !part.MatchesSearch(query.Search) || !afterKey(part.Key(), query) {
			continue
		}
		matched = append(matched, part)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return ordered(matched[i].Key(), matched[j].Key(), query.Descending)
	})
	return limit(matched, query.Limit), nil
}

// ListAllParts returns every part of a team in creation order.
func (s *Store) ListAllParts(ctx context.Context, teamID string) ([]domain.Part, error) {
	return s.ListParts(ctx, domain.ListQuery{Scope: teamID})
}
