package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/toolsascode/ccm/internal/store"
)

func TestBatchInsertIsAtomic(t *testing.T) {
	s := NewStore()
	collection := s.AddCollection("Portfolio")
	s.Associate(collection.ID, 2)

	err := s.BatchInsert(context.Background(), collection.ID, []int64{1, 2, 3})
	if !errors.Is(err, store.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}

	// A conflicting batch leaves nothing behind
	if got := s.Members(collection.ID); len(got) != 1 || got[0] != 2 {
		t.Errorf("expected members unchanged {2}, got %v", got)
	}
}

func TestListAssociationsPagination(t *testing.T) {
	s := NewStore()
	collection := s.AddCollection("Portfolio")
	for id := int64(1); id <= 5; id++ {
		s.Associate(collection.ID, id)
	}

	page, err := s.ListAssociations(context.Background(), collection.ID, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 || page[0].CompanyID != 3 || page[1].CompanyID != 4 {
		t.Errorf("unexpected page: %+v", page)
	}

	// Offset past the end yields an empty page, not an error
	page, err = s.ListAssociations(context.Background(), collection.ID, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("expected empty page, got %+v", page)
	}
}

func TestGetCollectionByName(t *testing.T) {
	s := NewStore()
	collection := s.AddCollection("Liked Companies List")

	found, err := s.GetCollectionByName(context.Background(), "Liked Companies List")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != collection.ID {
		t.Errorf("expected id %s, got %s", collection.ID, found.ID)
	}

	if _, err := s.GetCollectionByName(context.Background(), "Missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
