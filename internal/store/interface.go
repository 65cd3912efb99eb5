package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConstraintViolation is returned when a write violates a uniqueness constraint
var ErrConstraintViolation = errors.New("constraint violation")

// Collection is a named list of companies
type Collection struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Company is a company record
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Association links a company to a collection. The (company, collection)
// pair is unique.
type Association struct {
	CompanyID    int64     `json:"company_id"`
	CollectionID uuid.UUID `json:"collection_id"`
}

// Store is the association store the migration engine and the API run against
type Store interface {
	// ListCollections returns all collection metadata
	ListCollections(ctx context.Context) ([]Collection, error)

	// GetCollection returns a collection by id, ErrNotFound if absent
	GetCollection(ctx context.Context, id uuid.UUID) (*Collection, error)

	// GetCollectionByName returns a collection by exact name, ErrNotFound if absent
	GetCollectionByName(ctx context.Context, name string) (*Collection, error)

	// CountAssociations returns the number of companies in a collection
	CountAssociations(ctx context.Context, collectionID uuid.UUID) (int, error)

	// ListAssociations returns a page of a collection's associations in
	// stable (company id) order
	ListAssociations(ctx context.Context, collectionID uuid.UUID, offset, limit int) ([]Association, error)

	// ExistingMembers returns the subset of companyIDs already associated
	// with the collection
	ExistingMembers(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) (map[int64]struct{}, error)

	// BatchInsert associates every company with the collection in one
	// transaction. A uniqueness conflict rolls the whole batch back and
	// returns ErrConstraintViolation.
	BatchInsert(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) error

	// BatchDelete removes the companies' associations with the collection
	// in one transaction. Absent associations are not an error.
	BatchDelete(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) error

	// GetCompanies returns company records for the given ids, preserving
	// the input order and skipping unknown ids
	GetCompanies(ctx context.Context, ids []int64) ([]Company, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Close releases the store's resources
	Close()
}
