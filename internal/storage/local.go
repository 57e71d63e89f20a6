package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var _ Store = (*Local)(nil)

// MediaPrefix is the URL path the local store serves objects under.
const MediaPrefix = "/media/"

// Local keeps media in a directory and serves it over HTTP. It is the
// default store for development and tests.
//
// The public id keeps the original file extension, so the file server can
// guess the Content-Type from the name.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates root if needed. baseURL is the externally visible origin
// of this server, e.g. "http://localhost:8000".
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating media dir: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Put(ctx context.Context, localPath, publicID string, kind Kind) (Object, error) {
	if publicID == "" {
		return Object{}, ErrEmptyPublicID
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	id := publicID + strings.ToLower(filepath.Ext(localPath))
	dst, err := l.path(id)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: creating dir for %s: %w", id, err)
	}
	if err := copyFile(localPath, dst); err != nil {
		return Object{}, fmt.Errorf("storage: storing %s: %w", id, err)
	}

	return Object{URL: l.url(id), PublicID: id, Kind: kind}, nil
}

func (l *Local) Delete(ctx context.Context, publicID string, kind Kind) error {
	if publicID == "" {
		return nil
	}
	p, err := l.path(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: deleting %s: %w", publicID, err)
	}
	return nil
}

// Handler serves stored objects; mount it at MediaPrefix.
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(MediaPrefix, http.FileServer(http.Dir(l.root)))
}

// path resolves a public id inside root and refuses anything that would
// escape it.
func (l *Local) path(publicID string) (string, error) {
	clean := path.Clean("/" + publicID)
	if clean == "/" || strings.Contains(publicID, "..") {
		return "", fmt.Errorf("storage: invalid public id %q", publicID)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *Local) url(publicID string) string {
	u := url.URL{Path: MediaPrefix + publicID}
	return l.baseURL + u.EscapedPath()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Write to a temp name first so a reader never sees a half-written file.
	tmp := dst + ".part"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
