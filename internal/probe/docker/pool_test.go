package docker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MediaDir = "/srv/vidtube/staging"

	c, host := containerSpec(cfg)

	assert.Equal(t, cfg.Image, c.Image)
	assert.Equal(t, []string{"sleep"}, []string(c.Entrypoint), "ffmpeg entrypoint is replaced")
	assert.Equal(t, []string{"infinity"}, []string(c.Cmd))
	assert.Equal(t, "nobody", c.User)
	assert.Equal(t, "true", c.Labels[probeLabel])

	assert.Equal(t, "none", string(host.NetworkMode))
	assert.True(t, host.ReadonlyRootfs)
	assert.Equal(t, []string{"/srv/vidtube/staging:/media:ro"}, host.Binds)
	assert.Equal(t, cfg.MemoryLimit, host.Memory)
	assert.Equal(t, int64(1e9), host.NanoCPUs)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, retryBase, backoff(0))
	assert.Equal(t, retryBase, backoff(1))
	assert.Equal(t, 2*retryBase, backoff(2))
	assert.Equal(t, 8*retryBase, backoff(4))
	assert.Equal(t, retryMax, backoff(10))
	assert.Equal(t, retryMax, backoff(1000))
}

func TestPool_AcquireHonoursContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 0
	p := NewPool(nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 1, cap(p.ready), "pool holds at least one container")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_AcquireRequestsRefill(t *testing.T) {
	p := NewPool(nil, DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.ready <- "c1"
	p.ready <- "c2"

	id, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", id)
	assert.Len(t, p.refill, 1)

	// A pending refill request is not queued twice.
	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, p.refill, 1)
}

func TestPool_StopWithoutStart(t *testing.T) {
	p := NewPool(nil, DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Stop()
	p.Stop()

	assert.False(t, p.wait(time.Hour), "wait returns as soon as the pool is stopped")
}
