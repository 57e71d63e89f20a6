package docker

import (
	"time"
)

// Config holds the configuration for Docker-based probing.
type Config struct {
	// Image must provide ffprobe and a `sleep` binary.
	Image string
	// MediaDir is the host directory holding staged uploads. It is mounted
	// read-only at MountPoint in every container.
	MediaDir   string
	MountPoint string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout bounds a single ffprobe run.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
}

// DefaultConfig provides sensible defaults for ffprobe. MediaDir has no
// default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Image:       "jrottenberg/ffmpeg:6.1-alpine",
		MountPoint:  "/media",
		MemoryLimit: 256 * 1024 * 1024,
		CPULimit:    1,
		Timeout:     30 * time.Second,
		PoolSize:    2,
	}
}
