package cmds

import (
	"context"
	"coopcount/internal/history"
	"coopcount/internal/types"
	"fmt"
	"io"
	"os"
)

// PrintHistory writes the rendered history, most recent `limit` entries when limit > 0.
func PrintHistory(ctx context.Context, w io.Writer, store *history.Store, limit int, lang string) error {
	var records []types.CountRecord
	if limit > 0 {
		records = store.Tail(ctx, limit)
	} else {
		records = store.List(ctx)
	}
	if _, err := fmt.Fprintln(w, types.LabelsFor(lang).History); err != nil {
		return err
	}
	for _, line := range types.RenderHistory(lang, records) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the export text to path, or to w when path is empty or "-".
func Export(ctx context.Context, w io.Writer, store *history.Store, path string) error {
	if path == "" || path == "-" {
		return store.WriteText(ctx, w)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := store.WriteText(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Reset deletes the history log.
func Reset(ctx context.Context, store *history.Store) error {
	return store.Clear(ctx)
}
