package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Sink is where mapped records end up.
type Sink interface {
	Write(ctx context.Context, table string, records []map[string]any) error
}

// NDJSONSink writes one JSON object per line to a single writer. With Tagged set every
// line carries the table it came from under "_table".
type NDJSONSink struct {
	Tagged bool

	mu  sync.Mutex
	enc *gojson.Encoder
}

func NewNDJSONSink(w io.Writer) *NDJSONSink {
	return &NDJSONSink{enc: gojson.NewEncoder(w)}
}

func (s *NDJSONSink) Write(ctx context.Context, table string, records []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Tagged {
			rec["_table"] = table
		}
		if err := s.enc.Encode(rec); err != nil {
			return fmt.Errorf("write %s record: %w", table, err)
		}
	}
	return nil
}

// DirSink writes each table to <dir>/<table>.ndjson.
type DirSink struct {
	dir   string
	mu    sync.Mutex
	files map[string]*dirFile
}

type dirFile struct {
	f   *os.File
	buf *bufio.Writer
	enc *gojson.Encoder
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirSink{dir: dir, files: make(map[string]*dirFile)}, nil
}

func (s *DirSink) Write(ctx context.Context, table string, records []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	df, ok := s.files[table]
	if !ok {
		f, err := os.Create(filepath.Join(s.dir, filepath.Base(table)+".ndjson"))
		if err != nil {
			return fmt.Errorf("create output for %s: %w", table, err)
		}
		buf := bufio.NewWriter(f)
		df = &dirFile{f: f, buf: buf, enc: gojson.NewEncoder(buf)}
		s.files[table] = df
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := df.enc.Encode(rec); err != nil {
			return fmt.Errorf("write %s record: %w", table, err)
		}
	}
	return nil
}

// Close flushes and closes every file, returning the first error.
func (s *DirSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for table, df := range s.files {
		if err := df.buf.Flush(); err != nil && first == nil {
			first = fmt.Errorf("flush %s: %w", table, err)
		}
		if err := df.f.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.files = map[string]*dirFile{}
	return first
}
