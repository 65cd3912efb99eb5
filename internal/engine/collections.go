package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/toolsascode/ccm/internal/logger"
	"github.com/toolsascode/ccm/internal/progress"
	"github.com/toolsascode/ccm/internal/store"
)

// CompanyView is a company decorated with its liked status
type CompanyView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Liked bool   `json:"liked"`
}

// CollectionPage is one page of a collection's companies
type CollectionPage struct {
	Collection store.Collection
	Companies  []CompanyView
	Total      int
}

// ListCollections returns all collection metadata
func (s *Service) ListCollections(ctx context.Context) ([]store.Collection, error) {
	return s.store.ListCollections(ctx)
}

// GetCollectionPage returns a page of a collection's companies with their
// liked status and the collection's total association count
func (s *Service) GetCollectionPage(ctx context.Context, collectionID uuid.UUID, offset, limit int) (*CollectionPage, error) {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountAssociations(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count associations: %w", err)
	}

	associations, err := s.store.ListAssociations(ctx, collectionID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}

	companyIDs := make([]int64, 0, len(associations))
	for _, association := range associations {
		companyIDs = append(companyIDs, association.CompanyID)
	}

	liked, err := s.likedMembership(ctx, companyIDs)
	if err != nil {
		return nil, err
	}

	companies, err := s.store.GetCompanies(ctx, companyIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	named := make(map[int64]string, len(companies))
	for _, company := range companies {
		named[company.ID] = company.Name
	}

	page := &CollectionPage{Collection: *collection, Total: total}
	for _, companyID := range companyIDs {
		_, isLiked := liked[companyID]
		page.Companies = append(page.Companies, CompanyView{
			ID:    companyID,
			Name:  named[companyID],
			Liked: isLiked,
		})
	}
	return page, nil
}

// AddCompanies idempotently associates companies with a collection,
// skipping the ones already present
func (s *Service) AddCompanies(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) (int, error) {
	if _, err := s.store.GetCollection(ctx, collectionID); err != nil {
		return 0, err
	}

	unique := dedupe(companyIDs)
	existing, err := s.store.ExistingMembers(ctx, collectionID, unique)
	if err != nil {
		return 0, fmt.Errorf("failed to check existing members: %w", err)
	}

	missing := make([]int64, 0, len(unique))
	for _, companyID := range unique {
		if _, ok := existing[companyID]; !ok {
			missing = append(missing, companyID)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := s.store.BatchInsert(ctx, collectionID, missing); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// HealthCheck verifies the underlying store is reachable
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// OperationProgress returns the current snapshot of an operation
func (s *Service) OperationProgress(id string) (progress.Snapshot, error) {
	return s.registry.Snapshot(id)
}

// likedMembership returns the liked subset of the given company ids. A
// missing liked collection degrades the read path to liked=false instead of
// failing the listing.
func (s *Service) likedMembership(ctx context.Context, companyIDs []int64) (map[int64]struct{}, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}

	liked, err := s.store.GetCollectionByName(ctx, s.likedName)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warnf("Liked collection %q not found; reporting liked=false", s.likedName)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve liked collection: %w", err)
	}
	return s.store.ExistingMembers(ctx, liked.ID, companyIDs)
}
