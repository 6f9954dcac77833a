package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"bold-client-go/internal/archive"
	"bold-client-go/internal/fetcher"
)

// ErrArchiveDisabled is returned by the archive accessors when no archive
// backend is configured.
var ErrArchiveDisabled = errors.New("trace archives are disabled")

const archiveRoot = "trace/"

// Archives lists the stored trace archives
func (s *BoldService) Archives(ctx context.Context) ([]string, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	names, err := s.archiver.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Archive returns the unpacked tar bytes of a stored trace archive. name is
// a key as returned by Query or Archives.
func (s *BoldService) Archive(ctx context.Context, name string) ([]byte, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	if !strings.HasPrefix(name, archiveRoot) || path.Clean(name) != name || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: bad archive name %q", fetcher.ErrInvalidQuery, name)
	}
	return s.archiver.Load(ctx, name)
}

// IsArchiveMissing reports a lookup of an archive that does not exist
func IsArchiveMissing(err error) bool {
	return errors.Is(err, archive.ErrNotFound)
}
