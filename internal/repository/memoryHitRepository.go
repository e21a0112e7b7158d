package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/brahma/api-tracker/internal/models"
)

// In-process hit log used when no database is configured. Contents are lost on restart.
type MemoryHitRepository struct {
	mu     sync.RWMutex
	hits   []models.APIHit
	nextID uint
}

func NewMemoryHitRepository() *MemoryHitRepository {
	return &MemoryHitRepository{
		hits:   make([]models.APIHit, 0, 128),
		nextID: 1,
	}
}

func (r *MemoryHitRepository) Append(ctx context.Context, hit *models.APIHit) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hit.ID = r.nextID
	r.nextID++
	r.hits = append(r.hits, cloneHit(hit))

	return hit.ID, nil
}

func (r *MemoryHitRepository) ListAll(ctx context.Context) ([]models.APIHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	hits := make([]models.APIHit, len(r.hits))
	for i := range r.hits {
		hits[i] = cloneHit(&r.hits[i])
	}
	return hits, nil
}

func (r *MemoryHitRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.hits)), nil
}

func (r *MemoryHitRepository) CountBy(ctx context.Context, field HitField) ([]models.GroupCount, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("cannot group hits by %q", field)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	index := make(map[string]int)
	results := make([]models.GroupCount, 0)
	for i := range r.hits {
		key := field.Of(&r.hits[i])
		pos, ok := index[key]
		if !ok {
			pos = len(results)
			index[key] = pos
			results = append(results, models.GroupCount{Name: key})
		}
		results[pos].Count++
	}

	return results, nil
}

// Payload and ContentType are reference types; copy them so callers can't mutate stored hits
func cloneHit(hit *models.APIHit) models.APIHit {
	c := *hit
	if hit.Payload != nil {
		c.Payload = append([]byte(nil), hit.Payload...)
	}
	if hit.ContentType != nil {
		ct := *hit.ContentType
		c.ContentType = &ct
	}
	return c
}
