package objectstore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnsupportedType is returned when the sniffed content type is not allowed.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when the object exceeds the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrEmpty is returned for zero-length objects.
	ErrEmpty = errors.New("file is empty")
	// ErrUnknownObject is returned when a URL was not issued by the store.
	ErrUnknownObject = errors.New("unknown object")
)

// Store keeps order attachments and hands back an opaque reference URL.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes an object by the URL Put returned. Missing objects are not an error.
	Delete(ctx context.Context, url string) error
}

// AllowedTypes lists the attachment content types accepted for orders.
var AllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"image/png",
	"image/jpeg",
	"application/zip",
}
