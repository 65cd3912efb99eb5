// Package engine launches and runs asynchronous batch migrations of
// company associations between collections.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toolsascode/ccm/internal/config"
	"github.com/toolsascode/ccm/internal/events"
	"github.com/toolsascode/ccm/internal/logger"
	"github.com/toolsascode/ccm/internal/progress"
	"github.com/toolsascode/ccm/internal/store"
)

// ErrLikedCollectionMissing is returned when the well-known liked collection
// cannot be resolved; it fails the operation that needed it, never the process
var ErrLikedCollectionMissing = errors.New("liked collection not found")

// Operation is the handle returned by a launch. Done is closed when the
// background run finishes, whatever the outcome.
type Operation struct {
	ID   string
	Done chan struct{}
}

// Service launches migrations and serves the collection read path
type Service struct {
	store     store.Store
	registry  *progress.Registry
	publisher events.Publisher
	pageSize  int
	pageDelay time.Duration
	likedName string
}

// NewService creates a migration service. publisher may be nil when event
// publishing is disabled.
func NewService(st store.Store, registry *progress.Registry, publisher events.Publisher, cfg *config.Config) *Service {
	return &Service{
		store:     st,
		registry:  registry,
		publisher: publisher,
		pageSize:  cfg.Engine.PageSize,
		pageDelay: cfg.Engine.PageDelay,
		likedName: cfg.Engine.LikedCollection,
	}
}

// LaunchCopy starts copying every association of the source collection into
// the target collection and returns immediately with an operation handle
func (s *Service) LaunchCopy(ctx context.Context, sourceID, targetID uuid.UUID) (*Operation, error) {
	if _, err := s.store.GetCollection(ctx, sourceID); err != nil {
		return nil, fmt.Errorf("failed to resolve source collection: %w", err)
	}
	if _, err := s.store.GetCollection(ctx, targetID); err != nil {
		return nil, fmt.Errorf("failed to resolve target collection: %w", err)
	}

	total, err := s.store.CountAssociations(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count source associations: %w", err)
	}

	operation := &Operation{ID: uuid.NewString(), Done: make(chan struct{})}
	s.registry.Register(operation.ID, progress.ModeCopy, sourceID, targetID, total)
	s.publish(operation.ID, events.TypeOperationLaunched, progress.ModeCopy, sourceID, targetID, total)
	logger.Infof("Launched copy operation %s: %s -> %s (%d associations)", operation.ID, sourceID, targetID, total)

	go s.runCopy(operation, sourceID, targetID, total)
	return operation, nil
}

// LaunchMove starts moving the listed companies from the source collection
// into the target collection and returns immediately with an operation handle
func (s *Service) LaunchMove(ctx context.Context, sourceID, targetID uuid.UUID, companyIDs []int64) (*Operation, error) {
	if _, err := s.store.GetCollection(ctx, sourceID); err != nil {
		return nil, fmt.Errorf("failed to resolve source collection: %w", err)
	}
	if _, err := s.store.GetCollection(ctx, targetID); err != nil {
		return nil, fmt.Errorf("failed to resolve target collection: %w", err)
	}

	// Total counts the request list as given, duplicates included; progress
	// advances by the same raw slices so the two stay consistent.
	total := len(companyIDs)

	operation := &Operation{ID: uuid.NewString(), Done: make(chan struct{})}
	s.registry.Register(operation.ID, progress.ModeMove, sourceID, targetID, total)
	s.publish(operation.ID, events.TypeOperationLaunched, progress.ModeMove, sourceID, targetID, total)
	logger.Infof("Launched move operation %s: %s -> %s (%d companies)", operation.ID, sourceID, targetID, total)

	go s.runMove(operation, sourceID, targetID, companyIDs)
	return operation, nil
}

// runCopy pages through the source collection's associations and migrates
// each page into the target
func (s *Service) runCopy(operation *Operation, sourceID, targetID uuid.UUID, total int) {
	defer close(operation.Done)
	defer s.recoverPanic(operation, progress.ModeCopy, sourceID, targetID, total)
	ctx := context.Background()

	likedID, err := s.resolveLiked(ctx)
	if err != nil {
		s.failOperation(operation.ID, progress.ModeCopy, sourceID, targetID, total, err)
		return
	}

	processed := 0
	for processed < total {
		page, err := s.store.ListAssociations(ctx, sourceID, processed, s.pageSize)
		if err != nil {
			s.failOperation(operation.ID, progress.ModeCopy, sourceID, targetID, total, err)
			return
		}
		if len(page) == 0 {
			break
		}

		candidates := make([]int64, 0, len(page))
		for _, association := range page {
			candidates = append(candidates, association.CompanyID)
		}

		if err := s.migratePage(ctx, operation.ID, candidates, targetID, likedID); err != nil {
			s.failOperation(operation.ID, progress.ModeCopy, sourceID, targetID, total, err)
			return
		}

		processed += len(page)
		s.registry.Update(operation.ID, processed)
		time.Sleep(s.pageDelay)
	}

	s.registry.Complete(operation.ID)
	s.publish(operation.ID, events.TypeOperationCompleted, progress.ModeCopy, sourceID, targetID, total)
	logger.Infof("Copy operation %s completed (%d associations)", operation.ID, processed)
}

// runMove pages through the requested company id list, migrating the
// companies actually present in the source and removing them from it
func (s *Service) runMove(operation *Operation, sourceID, targetID uuid.UUID, companyIDs []int64) {
	defer close(operation.Done)
	total := len(companyIDs)
	defer s.recoverPanic(operation, progress.ModeMove, sourceID, targetID, total)
	ctx := context.Background()

	likedID, err := s.resolveLiked(ctx)
	if err != nil {
		s.failOperation(operation.ID, progress.ModeMove, sourceID, targetID, total, err)
		return
	}

	processed := 0
	for processed < total {
		end := processed + s.pageSize
		if end > total {
			end = total
		}
		slice := companyIDs[processed:end]
		unique := dedupe(slice)

		// Companies not currently in the source are silently skipped
		members, err := s.store.ExistingMembers(ctx, sourceID, unique)
		if err != nil {
			s.failOperation(operation.ID, progress.ModeMove, sourceID, targetID, total, err)
			return
		}
		candidates := make([]int64, 0, len(members))
		for _, companyID := range unique {
			if _, ok := members[companyID]; ok {
				candidates = append(candidates, companyID)
			}
		}

		if len(candidates) > 0 {
			if err := s.migratePage(ctx, operation.ID, candidates, targetID, likedID); err != nil {
				s.failOperation(operation.ID, progress.ModeMove, sourceID, targetID, total, err)
				return
			}
			if err := s.store.BatchDelete(ctx, sourceID, candidates); err != nil {
				s.failOperation(operation.ID, progress.ModeMove, sourceID, targetID, total, err)
				return
			}
		}

		// Progress advances by the raw slice length, duplicates included
		processed += len(slice)
		s.registry.Update(operation.ID, processed)
		time.Sleep(s.pageDelay)
	}

	s.registry.Complete(operation.ID)
	s.publish(operation.ID, events.TypeOperationCompleted, progress.ModeMove, sourceID, targetID, total)
	logger.Infof("Move operation %s completed (%d companies)", operation.ID, processed)
}

// migratePage inserts the candidates missing from the target and applies
// the liked-set rule to the full candidate set. A uniqueness conflict drops
// the failed batch for this page only.
func (s *Service) migratePage(ctx context.Context, operationID string, candidates []int64, targetID, likedID uuid.UUID) error {
	if err := s.insertMissing(ctx, operationID, targetID, candidates); err != nil {
		return err
	}

	// Exactly one branch per page: migrating into the liked collection
	// grants liked status, migrating anywhere else revokes it.
	if targetID == likedID {
		return s.insertMissing(ctx, operationID, likedID, candidates)
	}
	if err := s.store.BatchDelete(ctx, likedID, candidates); err != nil {
		return fmt.Errorf("failed to revoke liked status: %w", err)
	}
	return nil
}

// insertMissing associates the companies not already in the collection.
// Constraint violations discard the batch and the operation continues.
func (s *Service) insertMissing(ctx context.Context, operationID string, collectionID uuid.UUID, candidates []int64) error {
	existing, err := s.store.ExistingMembers(ctx, collectionID, candidates)
	if err != nil {
		return fmt.Errorf("failed to check existing members: %w", err)
	}

	missing := make([]int64, 0, len(candidates))
	for _, companyID := range candidates {
		if _, ok := existing[companyID]; !ok {
			missing = append(missing, companyID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	err = s.store.BatchInsert(ctx, collectionID, missing)
	if errors.Is(err, store.ErrConstraintViolation) {
		logger.Warnf("Operation %s: dropped a batch of %d inserts into %s after a uniqueness conflict", operationID, len(missing), collectionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// resolveLiked resolves the well-known liked collection once per operation
func (s *Service) resolveLiked(ctx context.Context) (uuid.UUID, error) {
	liked, err := s.store.GetCollectionByName(ctx, s.likedName)
	if errors.Is(err, store.ErrNotFound) {
		return uuid.Nil, ErrLikedCollectionMissing
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve liked collection: %w", err)
	}
	return liked.ID, nil
}

func (s *Service) failOperation(operationID, mode string, sourceID, targetID uuid.UUID, total int, err error) {
	logger.Errorf("Operation %s failed: %v", operationID, err)
	s.registry.Fail(operationID)
	s.publish(operationID, events.TypeOperationFailed, mode, sourceID, targetID, total)
}

func (s *Service) recoverPanic(operation *Operation, mode string, sourceID, targetID uuid.UUID, total int) {
	if r := recover(); r != nil {
		s.failOperation(operation.ID, mode, sourceID, targetID, total, fmt.Errorf("panic: %v", r))
	}
}

// publish sends a lifecycle event when a publisher is configured.
// Failures are logged and never affect the operation.
func (s *Service) publish(operationID, eventType, mode string, sourceID, targetID uuid.UUID, total int) {
	if s.publisher == nil {
		return
	}

	event := &events.Event{
		OperationID: operationID,
		Type:        eventType,
		Mode:        mode,
		SourceID:    sourceID,
		TargetID:    targetID,
		Total:       total,
		Timestamp:   time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warnf("Failed to publish %s event for operation %s: %v", eventType, operationID, err)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
