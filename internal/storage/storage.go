// Package storage holds the object stores uploaded media ends up in.
//
// A Store receives a file that is already on local disk (staged by
// internal/upload) and returns where it can be fetched from. Rows in the
// database keep both the public URL and the store's PublicID; the PublicID is
// what Delete needs later, the URL is what clients see.
package storage

import (
	"context"
	"errors"
)

// Kind tells the store what sort of media it is handling. Cloudinary keeps
// images and videos in separate namespaces, so deletes must name the kind.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Object is a stored file.
type Object struct {
	URL      string
	PublicID string
	Kind     Kind
}

// Store uploads and deletes media objects.
type Store interface {
	// Put copies the file at localPath into the store under publicID.
	// Putting the same publicID twice overwrites the first object.
	Put(ctx context.Context, localPath, publicID string, kind Kind) (Object, error)
	// Delete removes the object. Deleting an unknown publicID is not an error.
	Delete(ctx context.Context, publicID string, kind Kind) error
}

// ErrEmptyPublicID is returned by Put when no public id is given.
var ErrEmptyPublicID = errors.New("storage: empty public id")
