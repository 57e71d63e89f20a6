// Package service contains the business rules of VidTube.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes envelopes
//	Service (Business layer) → validates, checks ownership, orchestrates uploads
//	Repository (Data layer)  → reads/writes the database
//
// Services take primitives and model types, never *http.Request, and return
// apperror values instead of status codes. The handler package is the only
// caller today, but nothing here knows about HTTP.
//
// THE DEPENDENCY CHAIN:
//
//	main.go creates:  DB → Repositories → Services → Handlers
//	At runtime:       Handler calls Service calls Repository calls DB
//
// Every service takes repository interfaces, so tests inject in-memory
// fakes or an in-memory SQLite database.
package service

import (
	"context"
	"log/slog"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

// Media is the slice of upload.Bridge the services use.
type Media interface {
	Put(ctx context.Context, f *upload.StagedFile, kind storage.Kind) (storage.Object, error)
	RemoveQuietly(ctx context.Context, publicID string, kind storage.Kind)
}

var _ Media = (*upload.Bridge)(nil)

// Field length limits shared by several services.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxContentLength     = 2000
)

// requireOwner returns Forbidden unless callerID owns the resource.
func requireOwner(callerID, ownerID, message string) error {
	if callerID != ownerID {
		return apperror.Forbidden(message)
	}
	return nil
}

// logFailure logs unexpected errors only. AppErrors are client mistakes and
// are answered, not logged.
func logFailure(logger *slog.Logger, msg string, err error, attrs ...any) {
	if apperror.IsAppError(err) {
		return
	}
	logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
}
