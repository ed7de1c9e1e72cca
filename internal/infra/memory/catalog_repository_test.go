package memory

import (
	"context"
	"testing"
	"time"

	"live-trivia-service/internal/domain"
)

func TestCatalogRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		CatalogLoader: NewStaticCatalogLoader(map[string]domain.Catalog{
			"cat-1": sampleCatalog(),
		}),
	}
	repo := NewCatalogRepository(loader, time.Minute)

	if _, err := repo.GetCatalog(context.Background(), "cat-1"); err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetCatalog(context.Background(), "cat-1"); err != nil {
		t.Fatalf("get catalog 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCatalogRepositoryZeroTTLSkipsCache(t *testing.T) {
	loader := &countingLoader{
		CatalogLoader: NewStaticCatalogLoader(map[string]domain.Catalog{
			"cat-1": sampleCatalog(),
		}),
	}
	repo := NewCatalogRepository(loader, 0)

	for i := 0; i < 3; i++ {
		if _, err := repo.GetCatalog(context.Background(), "cat-1"); err != nil {
			t.Fatalf("get catalog %d: %v", i, err)
		}
	}
	if loader.calls != 3 {
		t.Fatalf("expected every call to hit the loader, got %d", loader.calls)
	}
}

func TestCatalogRepositoryUnknownID(t *testing.T) {
	repo := NewCatalogRepository(NewStaticCatalogLoader(nil), time.Minute)
	if _, err := repo.GetCatalog(context.Background(), "missing"); err != domain.ErrCatalogNotFound {
		t.Fatalf("expected catalog not found, got %v", err)
	}
}

type countingLoader struct {
	CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context, id string) (domain.Catalog, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx, id)
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		ID: "cat-1",
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Choices:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				TimeLimitSec: 20,
			},
		},
	}
}
