package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pierrec/lz4"
	"github.com/ray-project/ray-demos/pkg/task"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxLineBytes is the longest input line the file readers accept.
	MaxLineBytes = 1024 * 1024 // 1MB
)

// findFiles expands a doublestar glob to a sorted list of regular files.
func findFiles(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
	}
	var files []string
	for _, name := range matches {
		info, err := os.Lstat(name)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched the input pattern: %s", pattern)
	}
	sort.Strings(files)
	return files, nil
}

type wrappedReader struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedReader) Close() error {
	var err error
	for _, c := range w.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// openReader opens a file with transparent decompression for .lz4 and
// .gz inputs.
func openReader(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".lz4":
		return &wrappedReader{Reader: lz4.NewReader(file), closers: []io.Closer{file}}, nil
	case ".gz":
		zr, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		return &wrappedReader{Reader: zr, closers: []io.Closer{zr, file}}, nil
	default:
		return file, nil
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return scanner
}

// scanErr names the line cap when a scan fails on an over-long line.
func scanErr(err error) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("line exceeds %d bytes: %w", MaxLineBytes, err)
	}
	return err
}

// readFiles globs pattern and parses every matched file concurrently,
// then concatenates the per-file blocks in sorted file order.
func readFiles[T any](ctx context.Context, pattern string, parallelism int, parse func(path string) ([][]T, error)) ([][]T, error) {
	files, err := findFiles(pattern)
	if err != nil {
		return nil, err
	}

	perFile := make([][][]T, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			blocks, err := parse(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			perFile[i] = blocks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blocks [][]T
	for _, fb := range perFile {
		blocks = append(blocks, fb...)
	}
	return blocks, nil
}

// ReadLines builds a dataset with one row per text line across all files
// matching the glob pattern. Files ending in .lz4 or .gz are decompressed
// on the fly.
func ReadLines(pool *task.Pool, pattern string, opts ...Option) *Dataset[string] {
	o := newOptions(opts...)
	return &Dataset[string]{
		pool: pool,
		opts: o,
		gen: func(ctx context.Context) ([][]string, error) {
			return readFiles(ctx, pattern, o.readParallelism, func(path string) ([][]string, error) {
				return readLineBlocks(path, o.blockSize)
			})
		},
	}
}

func readLineBlocks(path string, blockSize int) ([][]string, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var blocks [][]string
	block := make([]string, 0, blockSize)
	scanner := newScanner(rc)
	for scanner.Scan() {
		block = append(block, scanner.Text())
		if len(block) == blockSize {
			blocks = append(blocks, block)
			block = make([]string, 0, blockSize)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, scanErr(err)
	}
	if len(block) > 0 {
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// ReadCSV builds a dataset of Records from all files matching the glob
// pattern. The first row of each file is its header; rows from one file
// share a single header index.
func ReadCSV(pool *task.Pool, pattern string, opts ...Option) *Dataset[Record] {
	o := newOptions(opts...)
	return &Dataset[Record]{
		pool: pool,
		opts: o,
		gen: func(ctx context.Context) ([][]Record, error) {
			return readFiles(ctx, pattern, o.readParallelism, func(path string) ([][]Record, error) {
				return readCSVBlocks(path, o.blockSize)
			})
		},
	}
}

func readCSVBlocks(path string, blockSize int) ([][]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var blocks [][]Record
	block := make([]Record, 0, blockSize)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		block = append(block, Record{fields: fields, cols: cols})
		if len(block) == blockSize {
			blocks = append(blocks, block)
			block = make([]Record, 0, blockSize)
		}
	}
	if len(block) > 0 {
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// ReadJSONL builds a dataset with one raw JSON document per non-blank
// line. Lines are syntax-checked up front so malformed input fails with
// a file and line number; field access stays lazy, typically through
// gjson paths in UDFs.
func ReadJSONL(pool *task.Pool, pattern string, opts ...Option) *Dataset[[]byte] {
	o := newOptions(opts...)
	return &Dataset[[]byte]{
		pool: pool,
		opts: o,
		gen: func(ctx context.Context) ([][][]byte, error) {
			return readFiles(ctx, pattern, o.readParallelism, func(path string) ([][][]byte, error) {
				return readJSONLBlocks(path, o.blockSize)
			})
		},
	}
}

func readJSONLBlocks(path string, blockSize int) ([][][]byte, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var blocks [][][]byte
	block := make([][]byte, 0, blockSize)
	scanner := newScanner(rc)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", lineNo)
		}
		doc := make([]byte, len(line))
		copy(doc, line)
		block = append(block, doc)
		if len(block) == blockSize {
			blocks = append(blocks, block)
			block = make([][]byte, 0, blockSize)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, scanErr(err)
	}
	if len(block) > 0 {
		blocks = append(blocks, block)
	}
	return blocks, nil
}
