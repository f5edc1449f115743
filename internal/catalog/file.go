package catalog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"

	"github.com/xenking/larek-storefront/internal/domain/lot"
)

// FileSource reads the catalog from a list response saved to disk. Files
// ending in .gz are decompressed.
type FileSource struct {
	Path string
	// ImageBaseURL prefixes relative image paths when set.
	ImageBaseURL string
}

var _ Source = FileSource{}

// Lots reads and decodes the file.
func (s FileSource) Lots(ctx context.Context) ([]lot.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(s.Path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}

	items, err := DecodeList(jx.DecodeBytes(data), s.resolve)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", s.Path)
	}
	return items, nil
}

func (s FileSource) resolve(p string) string {
	if s.ImageBaseURL == "" || p == "" || strings.Contains(p, "://") {
		return p
	}
	return strings.TrimRight(s.ImageBaseURL, "/") + "/" + strings.TrimLeft(p, "/")
}
