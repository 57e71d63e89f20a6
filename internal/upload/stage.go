// Package upload stages multipart files on local disk and forwards them to
// an object store.
//
// TWO STEPS:
//  1. Stage (HTTP middleware) writes each allowed file slot to the staging
//     directory and puts the result in the request context. The files are
//     removed when the request finishes, whatever the handler did.
//  2. Bridge.Put (called by services) sends one staged file to the store.
//     Services call it before writing any database row, so a failed upload
//     leaves no half-created entity behind.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/response"
)

// Slot names accepted by the upload routes.
const (
	SlotAvatar     = "avatar"
	SlotCoverImage = "coverImage"
	SlotVideoFile  = "videoFile"
	SlotThumbnail  = "thumbnail"
)

// memoryLimit is how much of the multipart body ParseMultipartForm keeps in
// RAM; larger parts spill to temp files.
const memoryLimit = 32 << 20

// StagedFile is one uploaded file sitting in the staging directory.
type StagedFile struct {
	ID          string // xid; also the basis of the stored object's public id
	Slot        string
	Path        string // absolute path on the host
	Filename    string // as sent by the client
	ContentType string
	Size        int64
}

// Files maps slot name to the staged file. A missing slot means the client
// did not send that file.
type Files map[string]*StagedFile

// Get returns the file for slot, or nil.
func (f Files) Get(slot string) *StagedFile {
	if f == nil {
		return nil
	}
	return f[slot]
}

type contextKey struct{}

// WithFiles stores files in ctx.
func WithFiles(ctx context.Context, files Files) context.Context {
	return context.WithValue(ctx, contextKey{}, files)
}

// FilesFromContext returns the staged files of the request, never nil.
func FilesFromContext(ctx context.Context) Files {
	if f, ok := ctx.Value(contextKey{}).(Files); ok {
		return f
	}
	return Files{}
}

// Stager owns the staging directory.
type Stager struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewStager creates dir if needed. maxBytes caps the whole request body.
func NewStager(dir string, maxBytes int64, logger *slog.Logger) (*Stager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("upload: resolving staging dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating staging dir: %w", err)
	}
	return &Stager{dir: abs, maxBytes: maxBytes, logger: logger}, nil
}

// Dir is the absolute staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage returns middleware accepting at most one file for each named slot.
// A file in any other field, or a second file in a slot, is rejected with
// 400 before the handler runs. Requests that are not multipart pass through
// with no files.
func (s *Stager) Stage(slots ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "multipart/form-data" {
				next.ServeHTTP(w, r.WithContext(WithFiles(r.Context(), Files{})))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
			if err := r.ParseMultipartForm(memoryLimit); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
					response.Fail(w, http.StatusRequestEntityTooLarge,
						fmt.Sprintf("upload exceeds the %d byte limit", s.maxBytes), nil)
					return
				}
				response.Error(w, apperror.ValidationFailed("body", "malformed multipart body"))
				return
			}
			defer r.MultipartForm.RemoveAll()

			files := Files{}
			defer s.cleanup(files)

			for field, headers := range r.MultipartForm.File {
				if !slices.Contains(slots, field) {
					response.Error(w, apperror.ValidationFailed(field, "Unexpected field "+field))
					return
				}
				if len(headers) > 1 {
					response.Error(w, apperror.ValidationFailed(field, "only one file is allowed for "+field))
					return
				}

				staged, err := s.stage(field, headers[0])
				if err != nil {
					s.logger.Error("failed to stage upload",
						slog.String("slot", field),
						slog.String("error", err.Error()),
					)
					response.Error(w, err)
					return
				}
				files[field] = staged
			}

			next.ServeHTTP(w, r.WithContext(WithFiles(r.Context(), files)))
		})
	}
}

func (s *Stager) stage(slot string, fh *multipart.FileHeader) (*StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("upload: opening part %s: %w", slot, err)
	}
	defer src.Close()

	id := xid.New().String()
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst := filepath.Join(s.dir, id+ext)

	// 0644: the probe container reads staged files as an unprivileged user.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("upload: creating staged file: %w", err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("upload: writing staged file: %w", err)
	}

	return &StagedFile{
		ID:          id,
		Slot:        slot,
		Path:        dst,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        n,
	}, nil
}

func (s *Stager) cleanup(files Files) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove staged file",
				slog.String("path", f.Path),
				slog.String("error", err.Error()),
			)
		}
	}
}
