package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/toolsascode/ccm/internal/store"
	"github.com/toolsascode/ccm/internal/store/memory"
)

func TestGetCollectionPage(t *testing.T) {
	st := memory.NewStore()
	liked := st.AddCollection(likedName)
	collection := st.AddCollection("Portfolio")
	st.AddCompany(1, "Acme")
	st.AddCompany(2, "Globex")
	st.AddCompany(3, "Initech")
	for _, id := range []int64{1, 2, 3} {
		st.Associate(collection.ID, id)
	}
	st.Associate(liked.ID, 2)

	service := newTestService(t, st, 200)
	page, err := service.GetCollectionPage(context.Background(), collection.ID, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.Total != 3 {
		t.Errorf("expected total 3, got %d", page.Total)
	}
	if len(page.Companies) != 2 {
		t.Fatalf("expected 2 companies on page, got %d", len(page.Companies))
	}
	if page.Companies[0].ID != 1 || page.Companies[0].Liked {
		t.Errorf("expected company 1 not liked, got %+v", page.Companies[0])
	}
	if page.Companies[1].ID != 2 || !page.Companies[1].Liked {
		t.Errorf("expected company 2 liked, got %+v", page.Companies[1])
	}
	if page.Companies[1].Name != "Globex" {
		t.Errorf("expected company name Globex, got %s", page.Companies[1].Name)
	}
}

func TestGetCollectionPageWithoutLikedCollection(t *testing.T) {
	st := memory.NewStore()
	collection := st.AddCollection("Portfolio")
	st.AddCompany(1, "Acme")
	st.Associate(collection.ID, 1)

	// The read path degrades to liked=false instead of failing
	service := newTestService(t, st, 200)
	page, err := service.GetCollectionPage(context.Background(), collection.ID, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Companies) != 1 || page.Companies[0].Liked {
		t.Errorf("expected one unliked company, got %+v", page.Companies)
	}
}

func TestGetCollectionPageUnknownCollection(t *testing.T) {
	st := memory.NewStore()
	service := newTestService(t, st, 200)

	if _, err := service.GetCollectionPage(context.Background(), uuid.New(), 0, 10); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddCompaniesIdempotent(t *testing.T) {
	st := memory.NewStore()
	collection := st.AddCollection("Portfolio")
	st.Associate(collection.ID, 1)

	service := newTestService(t, st, 200)
	added, err := service.AddCompanies(context.Background(), collection.ID, []int64{1, 2, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 new associations, got %d", added)
	}
	if got := st.Members(collection.ID); !sameMembers(got, 1, 2, 3) {
		t.Errorf("expected {1,2,3}, got %v", got)
	}

	// A repeat call adds nothing
	added, err = service.AddCompanies(context.Background(), collection.ID, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 0 {
		t.Errorf("expected 0 new associations, got %d", added)
	}
}
