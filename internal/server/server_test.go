package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brahma/api-tracker/internal/config"
	"github.com/brahma/api-tracker/internal/repository"
	"github.com/brahma/api-tracker/internal/service"
	"github.com/brahma/api-tracker/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:         "5000",
			Environment:  "test",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"*"},
		},
		Database:  config.DatabaseConfig{Driver: config.DriverMemory},
		RateLimit: config.RateLimitConfig{Algorithm: config.AlgorithmFixedWindow, RequestsPerMinute: 600},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

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

func newServer(t *testing.T, cfg *config.Config, deps Deps) *gin.Engine {
	t.Helper()
	if deps.Store == nil {
		deps.Store = repository.NewMemoryHitRepository()
	}
	srv, err := New(cfg, deps)
	require.NoError(t, err)
	return srv.GetRouter()
}

func send(r http.Handler, method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.5:4000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(testConfig(), Deps{})
	assert.Error(t, err)
}

func TestNewRejectsAuthWithoutDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, JWTSecret: "secret"}

	_, err := New(cfg, Deps{Store: repository.NewMemoryHitRepository()})
	assert.Error(t, err)
}

func TestNewRejectsBadTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"not-an-ip"}

	_, err := New(cfg, Deps{Store: repository.NewMemoryHitRepository()})
	assert.Error(t, err)
}

func TestTrackAndList(t *testing.T) {
	r := newServer(t, testConfig(), Deps{})

	w := send(r, http.MethodGet, "/", nil, "")
	assert.Equal(t, "Welcome to home", w.Body.String())

	w = send(r, http.MethodPost, "/track", map[string]string{
		"Content-Type":    "application/json",
		"X-Forwarded-For": "198.51.100.9",
	}, `{"x":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = send(r, http.MethodGet, "/api/hits", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var hits []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "203.0.113.5", hits[0]["ip_address"], "forwarded headers are ignored without trusted proxies")
}

func TestTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"203.0.113.0/24"}
	r := newServer(t, cfg, Deps{})

	send(r, http.MethodGet, "/track", map[string]string{"X-Forwarded-For": "198.51.100.9"}, "")

	var hits []map[string]any
	require.NoError(t, json.Unmarshal(send(r, http.MethodGet, "/api/hits", nil, "").Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "198.51.100.9", hits[0]["ip_address"])
}

func TestMethodNotAllowed(t *testing.T) {
	r := newServer(t, testConfig(), Deps{})

	w := send(r, http.MethodPatch, "/track", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newServer(t, testConfig(), Deps{})
	send(r, http.MethodGet, "/track", nil, "")
	send(r, http.MethodPost, "/track", map[string]string{"Content-Type": "application/json"}, "{")

	w := send(r, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `tracker_hits_tracked_total{method="GET"} 1`)
	assert.Contains(t, body, `tracker_track_failures_total{code="VALIDATION_ERROR"} 1`)
	assert.Contains(t, body, `tracker_http_request_duration_seconds_count{route="/track"} 2`)
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	r := newServer(t, cfg, Deps{})

	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/metrics", nil, "").Code)
}

func TestRateLimitedTrack(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Algorithm: config.AlgorithmSlidingWindow, RequestsPerMinute: 2}
	r := newServer(t, cfg, Deps{Redis: storage.NewRedisFromClient(client)})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, send(r, http.MethodGet, "/track", nil, "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/hits", nil, "").Code, "listing is not limited")

	w := send(r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":{"healthy":true`)
}

func TestAdminAuth(t *testing.T) {
	database := newTestDatabase(t)
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, JWTSecret: "secret", TokenExpiryHours: 1}

	authService := service.NewAuthService(repository.NewUserRepository(database), "secret", 1)
	_, err := authService.Register(context.Background(), "admin@example.com", "correct-horse", "Admin")
	require.NoError(t, err)

	r := newServer(t, cfg, Deps{
		Store:    repository.NewHitRepository(database),
		Database: database,
	})

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/track", nil, "").Code, "tracking stays open")
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/hits", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/hits/stats", nil, "").Code)

	w := send(r, http.MethodPost, "/auth/login", map[string]string{"Content-Type": "application/json"},
		`{"email":"admin@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var login map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	bearer := map[string]string{"Authorization": "Bearer " + login["token"]}
	w = send(r, http.MethodGet, "/api/hits", bearer, "")
	require.Equal(t, http.StatusOK, w.Code)
	var hits []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
	assert.Len(t, hits, 1)

	w = send(r, http.MethodGet, "/health", nil, "")
	assert.Contains(t, w.Body.String(), `"database":{"healthy":true`)
}
