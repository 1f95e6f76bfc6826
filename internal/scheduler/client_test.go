package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string               { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool         { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string         { return "lifecycle" }
func (c testSchedulerConfig) GetAsynqConcurrency() int          { return 1 }
func (c testSchedulerConfig) GetRefreshInterval() time.Duration { return time.Hour }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatalf("expected error for missing redis url")
	}
}

func TestEnqueueLifecycleRefresh(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueLifecycleRefresh(context.Background(), time.Now(), 0); err != nil {
		t.Fatalf("enqueue returned error: %v", err)
	}

	keys := srv.Keys()
	if len(keys) == 0 {
		t.Fatalf("expected task keys in redis, got none")
	}
}

func TestEnqueueDeduplicatesWithinWindow(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	defer client.Close()

	requestedAt := time.Now().Truncate(time.Second)
	if err := client.EnqueueLifecycleRefresh(context.Background(), requestedAt, time.Minute); err != nil {
		t.Fatalf("first enqueue returned error: %v", err)
	}
	err = client.EnqueueLifecycleRefresh(context.Background(), requestedAt, time.Minute)
	if err == nil {
		t.Fatalf("expected duplicate enqueue to be rejected within the unique window")
	}
}

func TestParseLifecycleRefreshPayloadRoundTrip(t *testing.T) {
	requestedAt := time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
	task, err := NewLifecycleRefreshTask(LifecycleRefreshPayload{RequestedAt: requestedAt})
	if err != nil {
		t.Fatalf("NewLifecycleRefreshTask returned error: %v", err)
	}

	payload, err := ParseLifecycleRefreshPayload(task)
	if err != nil {
		t.Fatalf("ParseLifecycleRefreshPayload returned error: %v", err)
	}
	if !payload.RequestedAt.Equal(requestedAt) {
		t.Fatalf("expected %v, got %v", requestedAt, payload.RequestedAt)
	}
}
