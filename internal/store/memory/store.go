// Package memory provides an in-memory association store used for tests and
// local development (CCM_STORE=memory).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/toolsascode/ccm/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store
type Store struct {
	mu           sync.RWMutex
	collections  map[uuid.UUID]store.Collection
	companies    map[int64]store.Company
	associations map[uuid.UUID]map[int64]struct{}
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		collections:  make(map[uuid.UUID]store.Collection),
		companies:    make(map[int64]store.Company),
		associations: make(map[uuid.UUID]map[int64]struct{}),
	}
}

// AddCollection registers a collection and returns it
func (s *Store) AddCollection(name string) store.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection := store.Collection{ID: uuid.New(), Name: name}
	s.collections[collection.ID] = collection
	s.associations[collection.ID] = make(map[int64]struct{})
	return collection
}

// AddCompany registers a company record
func (s *Store) AddCompany(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.companies[id] = store.Company{ID: id, Name: name}
}

// Associate links a company to a collection, ignoring duplicates
func (s *Store) Associate(collectionID uuid.UUID, companyID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.associations[collectionID]
	if !ok {
		members = make(map[int64]struct{})
		s.associations[collectionID] = members
	}
	members[companyID] = struct{}{}
}

// Members returns the sorted company ids associated with a collection
func (s *Store) Members(collectionID uuid.UUID) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedMembers(collectionID)
}

// ListCollections returns all collection metadata sorted by name
func (s *Store) ListCollections(ctx context.Context) ([]store.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collections := make([]store.Collection, 0, len(s.collections))
	for _, collection := range s.collections {
		collections = append(collections, collection)
	}
	sort.Slice(collections, func(i, j int) bool {
		return collections[i].Name < collections[j].Name
	})
	return collections, nil
}

// GetCollection returns a collection by id
func (s *Store) GetCollection(ctx context.Context, id uuid.UUID) (*store.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collection, ok := s.collections[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &collection, nil
}

// GetCollectionByName returns a collection by exact name
func (s *Store) GetCollectionByName(ctx context.Context, name string) (*store.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, collection := range s.collections {
		if collection.Name == name {
			result := collection
			return &result, nil
		}
	}
	return nil, store.ErrNotFound
}

// CountAssociations returns the number of companies in a collection
func (s *Store) CountAssociations(ctx context.Context, collectionID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.collections[collectionID]; !ok {
		return 0, store.ErrNotFound
	}
	return len(s.associations[collectionID]), nil
}

// ListAssociations returns a page of associations in company id order
func (s *Store) ListAssociations(ctx context.Context, collectionID uuid.UUID, offset, limit int) ([]store.Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.collections[collectionID]; !ok {
		return nil, store.ErrNotFound
	}

	members := s.sortedMembers(collectionID)
	if offset >= len(members) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(members) {
		end = len(members)
	}

	page := make([]store.Association, 0, end-offset)
	for _, companyID := range members[offset:end] {
		page = append(page, store.Association{CompanyID: companyID, CollectionID: collectionID})
	}
	return page, nil
}

// ExistingMembers returns the subset of companyIDs already in the collection
func (s *Store) ExistingMembers(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.associations[collectionID]
	existing := make(map[int64]struct{})
	for _, companyID := range companyIDs {
		if _, ok := members[companyID]; ok {
			existing[companyID] = struct{}{}
		}
	}
	return existing, nil
}

// BatchInsert associates companies with a collection atomically
func (s *Store) BatchInsert(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.associations[collectionID]
	if !ok {
		return store.ErrNotFound
	}

	// Check the whole batch first so a conflict leaves nothing behind,
	// mirroring a rolled-back transaction.
	for _, companyID := range companyIDs {
		if _, exists := members[companyID]; exists {
			return store.ErrConstraintViolation
		}
	}
	for _, companyID := range companyIDs {
		members[companyID] = struct{}{}
	}
	return nil
}

// BatchDelete removes the companies' associations with a collection
func (s *Store) BatchDelete(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.associations[collectionID]
	if !ok {
		return store.ErrNotFound
	}
	for _, companyID := range companyIDs {
		delete(members, companyID)
	}
	return nil
}

// GetCompanies returns company records for the given ids
func (s *Store) GetCompanies(ctx context.Context, ids []int64) ([]store.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companies := make([]store.Company, 0, len(ids))
	for _, id := range ids {
		if company, ok := s.companies[id]; ok {
			companies = append(companies, company)
		}
	}
	return companies, nil
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *Store) Close() {}

func (s *Store) sortedMembers(collectionID uuid.UUID) []int64 {
	members := make([]int64, 0, len(s.associations[collectionID]))
	for companyID := range s.associations[collectionID] {
		members = append(members, companyID)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}
