// Package probe measures uploaded media before it is published.
package probe

import "context"

// Prober reports the duration of a media file on local disk, in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Disabled is used when no probe backend is configured. Every file
// measures as zero seconds.
type Disabled struct{}

func (Disabled) Duration(context.Context, string) (float64, error) {
	return 0, nil
}
