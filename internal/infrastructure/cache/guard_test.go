package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMemoryGuardFirstOnce(t *testing.T) {
	t.Parallel()

	g := NewMemoryGuard(time.Minute)
	ctx := context.Background()

	first, err := g.First(ctx, "payload")
	if err != nil || !first {
		t.Fatalf("expected first call to win, got %v %v", first, err)
	}
	again, err := g.First(ctx, "payload")
	if err != nil || again {
		t.Fatalf("expected repeated call to lose, got %v %v", again, err)
	}
	other, _ := g.First(ctx, "other")
	if !other {
		t.Fatalf("expected distinct key to win")
	}
}

func TestMemoryGuardExpires(t *testing.T) {
	t.Parallel()

	g := NewMemoryGuard(time.Minute)
	clock := time.Date(2022, 4, 2, 10, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }

	ctx := context.Background()
	if ok, _ := g.First(ctx, "k"); !ok {
		t.Fatalf("expected first call to win")
	}
	clock = clock.Add(2 * time.Minute)
	if ok, _ := g.First(ctx, "k"); !ok {
		t.Fatalf("expected expired key to win again")
	}
}

func TestRedisGuardIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	opts := &redis.Options{Addr: host + ":" + port.Port()}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	g := NewRedisGuard(client, time.Minute)
	first, err := g.First(ctx, "retract:abc")
	if err != nil || !first {
		t.Fatalf("expected first call to win, got %v %v", first, err)
	}
	again, err := g.First(ctx, "retract:abc")
	if err != nil || again {
		t.Fatalf("expected repeated call to lose, got %v %v", again, err)
	}
}
