package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

const (
	// probeLabel marks containers started by the pool, so leftovers from a
	// crashed process can be found with `docker ps --filter label=...`.
	probeLabel = "vidtube.probe"

	retryBase = 500 * time.Millisecond
	retryMax  = 30 * time.Second
)

// Pool keeps Config.PoolSize idle ffprobe containers ready. A container
// serves exactly one probe: Acquire hands it out, Release removes it, and
// the manager starts a replacement in the background.
type Pool struct {
	cli    *client.Client
	config Config
	logger *slog.Logger

	ready  chan string
	refill chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates an empty pool. Nothing runs until Start.
func NewPool(cli *client.Client, cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		cli:    cli,
		config: cfg,
		logger: logger,
		ready:  make(chan string, max(cfg.PoolSize, 1)),
		refill: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the manager goroutine.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting probe container pool", slog.Int("poolSize", cap(p.ready)))
		p.wg.Add(1)
		go p.manage()
	})
}

// Stop waits for the manager and removes every idle container. Containers
// already acquired are left to their Release.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down probe container pool")
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.ready:
				p.remove(id)
			default:
				return
			}
		}
	})
}

// Acquire takes an idle container, blocking until one is ready or ctx ends.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.ready:
		p.requestRefill()
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Release removes a container after its probe. Exec'd processes may have
// left state behind, so containers are never returned to the pool.
func (p *Pool) Release(id string) {
	if err := p.remove(id); err != nil {
		p.logger.Error("failed to remove probe container",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pool) requestRefill() {
	select {
	case p.refill <- struct{}{}:
	default:
	}
}

// manage fills the pool, then sleeps until Acquire asks for a refill.
// Creation failures (daemon restarting, image removed) back off
// exponentially up to retryMax.
func (p *Pool) manage() {
	defer p.wg.Done()

	failures := 0
	for {
		for len(p.ready) < cap(p.ready) {
			select {
			case <-p.done:
				return
			default:
			}

			id, err := p.create()
			if err != nil {
				failures++
				wait := backoff(failures)
				p.logger.Error("failed to start probe container",
					slog.String("error", err.Error()),
					slog.Int("failures", failures),
					slog.Duration("retryIn", wait),
				)
				if !p.wait(wait) {
					return
				}
				continue
			}
			failures = 0
			// manage is the only sender and the length was checked above,
			// so this never blocks.
			p.ready <- id
		}

		select {
		case <-p.refill:
		case <-p.done:
			return
		}
	}
}

// wait sleeps for d. It returns false if the pool was stopped meanwhile.
func (p *Pool) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.done:
		return false
	}
}

func backoff(failures int) time.Duration {
	if failures < 1 {
		return retryBase
	}
	return min(retryBase<<min(failures-1, 8), retryMax)
}

// containerSpec describes an idle probe container. The image's entrypoint
// is ffmpeg, so it is replaced with `sleep infinity` and ffprobe runs later
// through exec. Staged uploads are visible read-only at MountPoint.
func containerSpec(cfg Config) (*container.Config, *container.HostConfig) {
	return &container.Config{
			Image:      cfg.Image,
			Entrypoint: []string{"sleep"},
			Cmd:        []string{"infinity"},
			User:       "nobody",
			Labels:     map[string]string{probeLabel: "true"},
		}, &container.HostConfig{
			NetworkMode:    "none",
			ReadonlyRootfs: true,
			Binds:          []string{cfg.MediaDir + ":" + cfg.MountPoint + ":ro"},
			Resources: container.Resources{
				Memory:   cfg.MemoryLimit,
				NanoCPUs: int64(cfg.CPULimit * 1e9),
			},
		}
}

func (p *Pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, hostCfg := containerSpec(p.config)
	resp, err := p.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("probe: creating container: %w", err)
	}
	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = p.remove(resp.ID)
		return "", fmt.Errorf("probe: starting container %s: %w", resp.ID, err)
	}
	return resp.ID, nil
}

func (p *Pool) remove(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}
