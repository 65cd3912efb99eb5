// Package postgres implements the association store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toolsascode/ccm/internal/store"
)

const uniqueViolationCode = "23505"

// Store is the pgx-backed implementation of store.Store
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL and verifies the connection
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Initialize creates the schema if it does not exist
func (s *Store) Initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collection_associations (
			company_id BIGINT NOT NULL,
			collection_id UUID NOT NULL REFERENCES collections(id),
			UNIQUE (company_id, collection_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_associations_collection
			ON collection_associations (collection_id, company_id)`,
	}

	for _, statement := range statements {
		if _, err := s.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// ListCollections returns all collection metadata
func (s *Store) ListCollections(ctx context.Context) ([]store.Collection, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []store.Collection
	for rows.Next() {
		var collection store.Collection
		if err := rows.Scan(&collection.ID, &collection.Name); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, collection)
	}
	return collections, rows.Err()
}

// GetCollection returns a collection by id
func (s *Store) GetCollection(ctx context.Context, id uuid.UUID) (*store.Collection, error) {
	var collection store.Collection
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM collections WHERE id = $1`, id,
	).Scan(&collection.ID, &collection.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &collection, nil
}

// GetCollectionByName returns a collection by exact name
func (s *Store) GetCollectionByName(ctx context.Context, name string) (*store.Collection, error) {
	var collection store.Collection
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM collections WHERE name = $1`, name,
	).Scan(&collection.ID, &collection.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection by name: %w", err)
	}
	return &collection, nil
}

// CountAssociations returns the number of companies in a collection
func (s *Store) CountAssociations(ctx context.Context, collectionID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM collection_associations WHERE collection_id = $1`,
		collectionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count associations: %w", err)
	}
	return count, nil
}

// ListAssociations returns a page of associations in company id order
func (s *Store) ListAssociations(ctx context.Context, collectionID uuid.UUID, offset, limit int) ([]store.Association, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company_id, collection_id FROM collection_associations
		 WHERE collection_id = $1
		 ORDER BY company_id
		 OFFSET $2 LIMIT $3`,
		collectionID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}
	defer rows.Close()

	var associations []store.Association
	for rows.Next() {
		var association store.Association
		if err := rows.Scan(&association.CompanyID, &association.CollectionID); err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		associations = append(associations, association)
	}
	return associations, rows.Err()
}

// ExistingMembers returns the subset of companyIDs already in the collection
func (s *Store) ExistingMembers(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{})
	if len(companyIDs) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT company_id FROM collection_associations
		 WHERE collection_id = $1 AND company_id = ANY($2)`,
		collectionID, companyIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var companyID int64
		if err := rows.Scan(&companyID); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		existing[companyID] = struct{}{}
	}
	return existing, rows.Err()
}

// BatchInsert associates companies with a collection in one transaction
func (s *Store) BatchInsert(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) error {
	if len(companyIDs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, companyID := range companyIDs {
		batch.Queue(
			`INSERT INTO collection_associations (company_id, collection_id) VALUES ($1, $2)`,
			companyID, collectionID,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range companyIDs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return classifyError(err)
		}
	}
	if err := results.Close(); err != nil {
		return classifyError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// BatchDelete removes the companies' associations in one transaction
func (s *Store) BatchDelete(ctx context.Context, collectionID uuid.UUID, companyIDs []int64) error {
	if len(companyIDs) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`DELETE FROM collection_associations
		 WHERE collection_id = $1 AND company_id = ANY($2)`,
		collectionID, companyIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to delete associations: %w", err)
	}
	return nil
}

// GetCompanies returns company records for the given ids in input order
func (s *Store) GetCompanies(ctx context.Context, ids []int64) ([]store.Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name FROM companies WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]store.Company, len(ids))
	for rows.Next() {
		var company store.Company
		if err := rows.Scan(&company.ID, &company.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		byID[company.ID] = company
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	companies := make([]store.Company, 0, len(byID))
	for _, id := range ids {
		if company, ok := byID[id]; ok {
			companies = append(companies, company)
		}
	}
	return companies, nil
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// classifyError maps a unique violation to the store sentinel
func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return store.ErrConstraintViolation
	}
	return fmt.Errorf("failed to insert associations: %w", err)
}
