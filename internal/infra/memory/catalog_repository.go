package memory

import (
	"context"
	"sync"
	"time"

	"live-trivia-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches catalog content from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, id string) (domain.Catalog, error)
}

// CatalogRepository memoizes loads for the configured TTL. Catalogs are
// resolved once at startup and rarely again, so this is a plain expiring map;
// singleflight still collapses a concurrent cold-start burst into one load.
// A non-positive TTL disables memoization entirely.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedCatalog
}

type cachedCatalog struct {
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		cache:  make(map[string]cachedCatalog),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, id string) (domain.Catalog, error) {
	if r.ttl <= 0 {
		return r.loader.LoadCatalog(ctx, id)
	}

	if catalog, ok := r.cached(id); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		if catalog, ok := r.cached(id); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx, id)
		if err != nil {
			return domain.Catalog{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedCatalog{catalog: catalog, expiresAt: time.Now().Add(r.ttl)}
		r.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) cached(id string) (domain.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[id]
	if !ok || !entry.expiresAt.After(time.Now()) {
		return domain.Catalog{}, false
	}
	return entry.catalog, true
}

// StaticCatalogLoader is a simple loader backed by an in-memory map (useful
// for tests and the built-in demo catalog).
type StaticCatalogLoader struct {
	catalogs map[string]domain.Catalog
}

func NewStaticCatalogLoader(catalogs map[string]domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalogs: catalogs}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, id string) (domain.Catalog, error) {
	if catalog, ok := l.catalogs[id]; ok {
		return catalog, nil
	}
	return domain.Catalog{}, domain.ErrCatalogNotFound
}
