package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "ping")
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func TestHealthChecker_NoChecksIsHealthy(t *testing.T) {
	h := NewHealthChecker()
	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Empty(t, status.Checks)
}

func TestHealthChecker_FailingCheck(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("dispatcher", func(ctx context.Context) error { return nil }, time.Second)
	h.AddRedisCheck(fakePinger{err: errors.New("connection refused")}, time.Second)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["dispatcher"])
	assert.Equal(t, "connection refused", status.Checks["redis"])
}

func TestHealthChecker_RedisHealthy(t *testing.T) {
	h := NewHealthChecker()
	h.AddRedisCheck(fakePinger{}, time.Second)
	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["redis"])
}

func TestHealthChecker_CheckTimeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"])
}
