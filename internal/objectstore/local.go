package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const sniffLen = 3072

// Local stores objects as files in a directory served under baseURL.
type Local struct {
	dir      string
	baseURL  string
	maxBytes int64
	log      *zerolog.Logger
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir, baseURL string, maxBytes int64, logger *zerolog.Logger) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Local{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		log:      logger,
	}, nil
}

// Dir returns the directory files are written to.
func (l *Local) Dir() string {
	return l.dir
}

// Put sniffs the content type, checks it against AllowedTypes and writes the
// object under a fresh name. The client-supplied name is only logged.
func (l *Local) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", ErrEmpty
	}

	mt := mimetype.Detect(head)
	if !lo.ContainsBy(AllowedTypes, mt.Is) {
		l.log.Debug().Str("name", name).Str("mime", mt.String()).Msg("rejected upload")
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	filename := uuid.NewString() + mt.Extension()
	path := filepath.Join(l.dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}

	src := io.MultiReader(bytes.NewReader(head), r)
	if l.maxBytes > 0 {
		src = io.LimitReader(src, l.maxBytes+1)
	}
	written, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && l.maxBytes > 0 && written > l.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write object: %w", err)
	}

	l.log.Info().Str("name", name).Str("object", filename).Int64("bytes", written).Msg("stored upload")
	return l.baseURL + "/" + filename, nil
}

// Delete removes the file behind url.
func (l *Local) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filename, ok := strings.CutPrefix(url, l.baseURL+"/")
	if !ok || filename == "" || filename != filepath.Base(filename) {
		return fmt.Errorf("%w: %s", ErrUnknownObject, url)
	}
	if err := os.Remove(filepath.Join(l.dir, filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove object: %w", err)
	}
	l.log.Info().Str("object", filename).Msg("removed upload")
	return nil
}
