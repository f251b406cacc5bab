package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestChecker_Run(t *testing.T) {
	c := NewChecker(time.Second, zap.NewNop())
	c.Register("store", func(ctx context.Context) error { return nil })
	c.Register("ledger", func(ctx context.Context) error { return errors.New("database is locked") })

	observed := map[string]bool{}
	c.OnResult(func(name string, healthy bool) { observed[name] = healthy })

	report := c.Run(context.Background())
	assert.False(t, report.Healthy())
	assert.Equal(t, "ok", report.Checks["store"])
	assert.Equal(t, "database is locked", report.Checks["ledger"])
	assert.Equal(t, map[string]bool{"store": true, "ledger": false}, observed)
}

func TestChecker_Timeout(t *testing.T) {
	c := NewChecker(10*time.Millisecond, zap.NewNop())
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	report := c.Run(context.Background())
	assert.Equal(t, "degraded", report.Status)
	assert.Contains(t, report.Checks["slow"], "deadline exceeded")
}

func TestChecker_ServeHTTP(t *testing.T) {
	c := NewChecker(time.Second, zap.NewNop())
	c.Register("store", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)

	c.Register("blobs", func(ctx context.Context) error { return errors.New("read-only") })
	rec = httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChecker_UpdatesGRPCStatus(t *testing.T) {
	healthy := true
	c := NewChecker(time.Second, zap.NewNop())
	c.Register("store", func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})

	srv := grpchealth.NewServer()
	ctx := context.Background()

	c.update(ctx, srv)
	resp, err := srv.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	healthy = false
	c.update(ctx, srv)
	resp, err = srv.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
