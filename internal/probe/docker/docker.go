// Package docker runs ffprobe inside throwaway Docker containers.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/vidtube/internal/probe"
)

var _ probe.Prober = (*Prober)(nil)

// ErrTimeout is returned when ffprobe does not finish within Config.Timeout.
var ErrTimeout = errors.New("probe: ffprobe timed out")

// Prober implements probe.Prober using ffprobe in Docker.
type Prober struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New connects to the Docker daemon, pulls the image and starts the pool.
func New(cfg Config, logger *slog.Logger) (*Prober, error) {
	if cfg.MediaDir == "" {
		return nil, errors.New("probe: MediaDir is required")
	}
	abs, err := filepath.Abs(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("probe: resolving media dir: %w", err)
	}
	cfg.MediaDir = abs

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Reading to EOF blocks until the pull is complete.
	io.Copy(io.Discard, reader)
	logger.Info("docker image is ready")

	p := &Prober{
		cli:    cli,
		config: cfg,
		logger: logger,
	}
	p.pool = NewPool(cli, cfg, logger)
	p.pool.Start()

	return p, nil
}

// Close shuts down the pool and the docker client.
func (p *Prober) Close() error {
	p.pool.Stop()
	return p.cli.Close()
}

// Duration runs ffprobe on hostPath, which must live under Config.MediaDir.
func (p *Prober) Duration(ctx context.Context, hostPath string) (float64, error) {
	target, err := p.containerPath(hostPath)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	containerID, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("probe: waiting for a container: %w", err)
	}
	defer p.pool.Release(containerID)

	probeCtx, probeCancel := context.WithTimeout(ctx, p.config.Timeout)
	defer probeCancel()

	execResp, err := p.cli.ContainerExecCreate(probeCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd: []string{
			"ffprobe", "-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			target,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := p.cli.ContainerExecAttach(probeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	select {
	case <-done:
	case <-probeCtx.Done():
		return 0, ErrTimeout
	}

	inspect, err := p.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return 0, fmt.Errorf("probe: ffprobe exited with %d: %s", inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}

	seconds, err := parseDuration(stdout.String())
	if err != nil {
		return 0, err
	}
	p.logger.Debug("probed media",
		slog.String("path", target),
		slog.Float64("seconds", seconds),
		slog.Duration("took", time.Since(start)),
	)
	return seconds, nil
}

// containerPath maps a host path under MediaDir to its path inside the
// container.
func (p *Prober) containerPath(hostPath string) (string, error) {
	abs, err := filepath.Abs(hostPath)
	if err != nil {
		return "", fmt.Errorf("probe: resolving %s: %w", hostPath, err)
	}
	rel, err := filepath.Rel(p.config.MediaDir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("probe: %s is outside %s", hostPath, p.config.MediaDir)
	}
	return path.Join(p.config.MountPoint, filepath.ToSlash(rel)), nil
}

// parseDuration reads ffprobe's bare "12.345000" output. Streams without a
// known duration print "N/A", which counts as zero.
func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, nil
	}
	// Some containers print one line per format entry; the first one wins.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("probe: unexpected ffprobe output %q: %w", s, err)
	}
	return d, nil
}
