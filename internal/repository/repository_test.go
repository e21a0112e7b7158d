package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brahma/api-tracker/internal/models"
	"github.com/brahma/api-tracker/internal/storage"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDatabase(t *testing.T) *storage.Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	database := storage.NewDatabase(db)
	require.NoError(t, database.AutoMigrate())
	return database
}

func strPtr(s string) *string { return &s }

func sampleHit(method, ip, ua string) *models.APIHit {
	return &models.APIHit{
		RequestID:   models.TrackRouteID,
		RequestType: method,
		RequestTime: time.Now().UTC(),
		IPAddress:   ip,
		OS:          "Windows 10",
		UserAgent:   ua,
	}
}

// hitLog is the behaviour shared by the gorm and in-memory repositories
type hitLog interface {
	Append(ctx context.Context, hit *models.APIHit) (uint, error)
	ListAll(ctx context.Context) ([]models.APIHit, error)
	Count(ctx context.Context) (int64, error)
	CountBy(ctx context.Context, field HitField) ([]models.GroupCount, error)
}

func implementations(t *testing.T) map[string]hitLog {
	return map[string]hitLog{
		"gorm":   NewHitRepository(newTestDatabase(t)),
		"memory": NewMemoryHitRepository(),
	}
}

func TestHitLogEmpty(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := repo.ListAll(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, hits)
			assert.Empty(t, hits)

			count, err := repo.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestHitLogAppendAssignsIncreasingIDs(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seen := make(map[uint]bool)
			var last uint

			for _, method := range []string{"GET", "POST", "PUT", "DELETE"} {
				id, err := repo.Append(ctx, sampleHit(method, "10.0.0.1", "ua"))
				require.NoError(t, err)
				assert.False(t, seen[id], "id %d assigned twice", id)
				assert.Greater(t, id, last)
				seen[id] = true
				last = id
			}

			hits, err := repo.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, hits, 4)
			assert.Equal(t, "GET", hits[0].RequestType)
			assert.Equal(t, "DELETE", hits[3].RequestType)
			assert.Equal(t, last, hits[3].ID)
		})
	}
}

func TestHitLogConcurrentAppend(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 50

			ids := make([]uint, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					ids[i], errs[i] = repo.Append(ctx, sampleHit("POST", "10.0.0.1", "ua"))
				}(i)
			}
			wg.Wait()

			seen := make(map[uint]bool, n)
			for i := range ids {
				require.NoError(t, errs[i])
				assert.False(t, seen[ids[i]], "id %d assigned twice", ids[i])
				seen[ids[i]] = true
			}

			hits, err := repo.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, hits, n)
			for i := 1; i < len(hits); i++ {
				assert.Greater(t, hits[i].ID, hits[i-1].ID, "listing stays in id order")
			}

			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(n), count)
		})
	}
}

func TestHitLogRoundTrip(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			withBody := sampleHit("POST", "203.0.113.5", "Mozilla/5.0 (Windows NT 10.0)")
			withBody.Payload = datatypes.JSON(`{"x":1}`)
			withBody.ContentType = strPtr("application/json")
			_, err := repo.Append(ctx, withBody)
			require.NoError(t, err)

			_, err = repo.Append(ctx, sampleHit("GET", "203.0.113.6", "curl/8.4.0"))
			require.NoError(t, err)

			hits, err := repo.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, hits, 2)

			got := hits[0]
			assert.Equal(t, withBody.ID, got.ID)
			assert.Equal(t, models.TrackRouteID, got.RequestID)
			assert.Equal(t, "POST", got.RequestType)
			assert.WithinDuration(t, withBody.RequestTime, got.RequestTime, time.Millisecond)
			assert.JSONEq(t, `{"x":1}`, string(got.Payload))
			require.NotNil(t, got.ContentType)
			assert.Equal(t, "application/json", *got.ContentType)
			assert.Equal(t, "203.0.113.5", got.IPAddress)
			assert.Equal(t, "Windows 10", got.OS)
			assert.Equal(t, "Mozilla/5.0 (Windows NT 10.0)", got.UserAgent)

			bare := hits[1]
			assert.False(t, bare.HasPayload())
			assert.Nil(t, bare.ContentType)
		})
	}
}

func TestHitLogCountBy(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, h := range []*models.APIHit{
				sampleHit("GET", "10.0.0.1", "a"),
				sampleHit("GET", "10.0.0.2", "a"),
				sampleHit("POST", "10.0.0.1", "b"),
			} {
				_, err := repo.Append(ctx, h)
				require.NoError(t, err)
			}

			byIP, err := repo.CountBy(ctx, FieldIPAddress)
			require.NoError(t, err)
			assert.ElementsMatch(t, []models.GroupCount{
				{Name: "10.0.0.1", Count: 2},
				{Name: "10.0.0.2", Count: 1},
			}, byIP)

			byMethod, err := repo.CountBy(ctx, FieldRequestType)
			require.NoError(t, err)
			assert.ElementsMatch(t, []models.GroupCount{
				{Name: "GET", Count: 2},
				{Name: "POST", Count: 1},
			}, byMethod)

			_, err = repo.CountBy(ctx, HitField("payload; DROP TABLE api_hits"))
			assert.Error(t, err)
		})
	}
}

func TestMemoryHitRepositoryIsolatesCallers(t *testing.T) {
	repo := NewMemoryHitRepository()
	ctx := context.Background()

	hit := sampleHit("POST", "10.0.0.1", "ua")
	hit.Payload = datatypes.JSON(`{"x":1}`)
	_, err := repo.Append(ctx, hit)
	require.NoError(t, err)

	hit.Payload[2] = 'y'

	hits, err := repo.ListAll(ctx)
	require.NoError(t, err)
	hits[0].IPAddress = "changed"

	again, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(again[0].Payload))
	assert.Equal(t, "10.0.0.1", again[0].IPAddress)
}

func TestMemoryHitRepositoryHonoursCancelledContext(t *testing.T) {
	repo := NewMemoryHitRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Append(ctx, sampleHit("GET", "10.0.0.1", "ua"))
	assert.ErrorIs(t, err, context.Canceled)
}
