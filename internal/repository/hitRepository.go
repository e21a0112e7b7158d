package repository

import (
	"context"
	"fmt"

	"github.com/brahma/api-tracker/internal/models"
	"github.com/brahma/api-tracker/internal/storage"
)

// Column a hit can be grouped by
type HitField string

const (
	FieldRequestType HitField = "request_type"
	FieldIPAddress   HitField = "ip_address"
	FieldOS          HitField = "os"
	FieldUserAgent   HitField = "user_agent"
)

func (f HitField) Valid() bool {
	switch f {
	case FieldRequestType, FieldIPAddress, FieldOS, FieldUserAgent:
		return true
	default:
		return false
	}
}

// Value of f on a hit
func (f HitField) Of(hit *models.APIHit) string {
	switch f {
	case FieldRequestType:
		return hit.RequestType
	case FieldIPAddress:
		return hit.IPAddress
	case FieldOS:
		return hit.OS
	case FieldUserAgent:
		return hit.UserAgent
	default:
		return ""
	}
}

type HitRepository struct {
	db *storage.Database
}

func NewHitRepository(db *storage.Database) *HitRepository {
	return &HitRepository{db: db}
}

// Inserts a hit and returns the id the store assigned to it
func (r *HitRepository) Append(ctx context.Context, hit *models.APIHit) (uint, error) {
	if err := r.db.DB.WithContext(ctx).Create(hit).Error; err != nil {
		return 0, err
	}
	return hit.ID, nil
}

// Returns every hit in insertion order
func (r *HitRepository) ListAll(ctx context.Context) ([]models.APIHit, error) {
	hits := make([]models.APIHit, 0)

	err := r.db.DB.WithContext(ctx).
		Order("id ASC").
		Find(&hits).Error

	return hits, err
}

func (r *HitRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.APIHit{}).
		Count(&count).Error

	return count, err
}

// Returns the number of hits per distinct value of field
func (r *HitRepository) CountBy(ctx context.Context, field HitField) ([]models.GroupCount, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("cannot group hits by %q", field)
	}

	column := string(field)
	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.APIHit{}).
		Select(column + ", COUNT(*) as count").
		Group(column).
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.GroupCount, 0)
	for rows.Next() {
		var name string
		var count int64

		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}

		results = append(results, models.GroupCount{Name: name, Count: count})
	}

	return results, rows.Err()
}
