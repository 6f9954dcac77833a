package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/pgzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Pack gzip-compresses blob. A blob that is already gzip is returned as is.
func Pack(blob []byte) ([]byte, error) {
	if bytes.HasPrefix(blob, gzipMagic) {
		return blob, nil
	}

	var buf bytes.Buffer
	zw, err := pgzip.NewWriterLevel(&buf, pgzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(blob); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to compress archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reverses Pack
func Unpack(r io.Reader) ([]byte, error) {
	zr, err := pgzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress archive: %w", err)
	}
	return data, nil
}

// Archiver names, packs and stores trace archives
type Archiver struct {
	store Store
	now   func() time.Time
}

// NewArchiver creates an Archiver writing to store
func NewArchiver(store Store) *Archiver {
	return &Archiver{store: store, now: time.Now}
}

// Name derives the object name of a blob: a date directory plus the first
// 16 bytes of its SHA-256, so the same archive saved twice on one day
// overwrites itself.
func (a *Archiver) Name(blob []byte) string {
	sum := sha256.Sum256(blob)
	return fmt.Sprintf("trace/%s/%s.tar.gz", a.now().UTC().Format("2006-01-02"), hex.EncodeToString(sum[:16]))
}

// Save packs blob and stores it, returning the object name
func (a *Archiver) Save(ctx context.Context, blob []byte) (string, error) {
	packed, err := Pack(blob)
	if err != nil {
		return "", err
	}

	name := a.Name(blob)
	if err := a.store.Put(ctx, name, packed); err != nil {
		return "", fmt.Errorf("failed to store archive: %w", err)
	}

	slog.Info("[BOLD] trace archive stored", "key", name, "bytes", len(blob), "stored_bytes", len(packed))
	return name, nil
}

// Load reads and unpacks a stored archive
func (a *Archiver) Load(ctx context.Context, name string) ([]byte, error) {
	rc, err := a.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Unpack(rc)
}

// List returns stored archive names
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	return a.store.List(ctx, "trace/")
}
