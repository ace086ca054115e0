package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// WriteJSONL executes the chain and writes one part-%05d.jsonl file per
// block into dir, creating it if needed. Blocks are written concurrently;
// part numbering follows block order. Rows are marshaled with
// encoding/json, except []byte and json.RawMessage rows, which are
// written verbatim (so a ReadJSONL dataset round-trips).
func (ds *Dataset[T]) WriteJSONL(ctx context.Context, dir string) error {
	blocks, err := ds.gen(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ds.opts.readParallelism)
	for i, block := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("part-%05d.jsonl", i))
			if err := writeJSONLFile(path, block); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func writeJSONLFile[T any](path string, rows []T) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		switch raw := any(row).(type) {
		case []byte:
			if err := writeRawLine(w, raw); err != nil {
				return err
			}
		case json.RawMessage:
			if err := writeRawLine(w, raw); err != nil {
				return err
			}
		default:
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeRawLine(w *bufio.Writer, doc []byte) error {
	if _, err := w.Write(doc); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
