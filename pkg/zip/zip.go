package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
)

// Entry is one file of an archive. Open is called lazily while writing so
// large remote assets are streamed rather than buffered.
type Entry struct {
	Filename string
	Open     func(ctx context.Context) (io.ReadCloser, error)
}

// Write streams entries into w as a zip archive. It stops at the first
// failing entry; the partial archive is not finalised in that case.
func Write(ctx context.Context, w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeEntry(ctx, zw, entry); err != nil {
			return fmt.Errorf("zip: %s: %w", entry.Filename, err)
		}
	}
	return zw.Close()
}

func writeEntry(ctx context.Context, zw *zip.Writer, entry Entry) error {
	src, err := entry.Open(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(entry.Filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
