// Package file implements connectors over CSV, JSON and XML documents. A document is loaded
// whole into memory and queried with the in-memory query engine.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dataport/internal/connector"
	"dataport/internal/query"
	"dataport/internal/schema"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// flattenDepth bounds how many levels of nested objects become dotted columns.
const flattenDepth = 2

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Structure describes a loaded document.
type Structure struct {
	Columns     []schema.ColumnInfo `json:"columns"`
	RecordCount int                 `json:"recordCount"`
	// RootPath is where the records were found; empty for the document root.
	RootPath string `json:"rootPath,omitempty"`
}

type dataset struct {
	records  []schema.Record
	columns  []schema.ColumnInfo
	rootPath string
}

// parser turns decoded text into a dataset.
type parser func(text []byte) (*dataset, error)

// source is the behavior CSV, JSON and XML connectors share.
type source struct {
	connector.Base

	filePath string
	encoding string
	parse    parser

	name string
	data *dataset
}

func newSource(kind connector.SourceKind, filePath, encoding string) source {
	return source{
		Base:     connector.NewBase(kind),
		filePath: filePath,
		encoding: encoding,
	}
}

// Connect loads the configured file. A source already filled by LoadBuffer is left as is.
func (s *source) Connect(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.ObserveConnect(start, err) }()

	if s.data != nil {
		s.MarkConnected(true)
		return nil
	}
	if strings.TrimSpace(s.filePath) == "" {
		return connector.ConnectionFailed(s.Kind(), errors.New("no file path configured and no buffer loaded"))
	}
	return s.LoadPath(ctx, s.filePath)
}

// Disconnect drops the loaded dataset.
func (s *source) Disconnect(context.Context) error {
	s.data = nil
	s.MarkConnected(false)
	return nil
}

// LoadPath reads and parses the file at path.
func (s *source) LoadPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return connector.ConnectionFailed(s.Kind(), err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return connector.ConnectionFailed(s.Kind(), fmt.Errorf("read %s: %w", path, err))
	}
	return s.LoadBuffer(raw, filepath.Base(path))
}

// LoadBuffer parses raw bytes as the source document. On failure nothing is kept and the
// source stays disconnected.
func (s *source) LoadBuffer(raw []byte, filename string) error {
	text, err := decode(raw, s.encoding)
	if err != nil {
		s.data = nil
		s.MarkConnected(false)
		return connector.InvalidConfig(s.Kind(), "%v", err)
	}

	data, err := s.parse(text)
	if err != nil {
		s.data = nil
		s.MarkConnected(false)
		var ce *connector.Error
		if errors.As(err, &ce) {
			return err
		}
		return connector.ParseFailed(s.Kind(), err)
	}

	s.name = tableName(filename)
	s.data = data
	s.MarkConnected(true)
	s.Logger().Info("file loaded",
		zap.String("file", filename),
		zap.Int("records", len(data.records)),
		zap.Int("columns", len(data.columns)),
		zap.String("root_path", data.rootPath),
	)
	return nil
}

// ParseStructure reports what was inferred from the loaded document.
func (s *source) ParseStructure() (*Structure, error) {
	if err := s.RequireConnected(); err != nil {
		return nil, err
	}
	return &Structure{
		Columns:     s.columns(),
		RecordCount: len(s.data.records),
		RootPath:    s.data.rootPath,
	}, nil
}

// TestConnection reports on the loaded document without discarding it; otherwise it
// loads the configured file and releases it again.
func (s *source) TestConnection(ctx context.Context) connector.TestResult {
	if !s.IsConnected() {
		return connector.DefaultTestConnection(ctx, s)
	}
	start := time.Now()
	if _, err := s.Tables(ctx); err != nil {
		return connector.TestResult{Latency: time.Since(start), Error: err.Error()}
	}
	return connector.TestResult{Success: true, Latency: time.Since(start), Permissions: []string{"read"}}
}

// Tables returns the single synthetic table standing for the whole document.
func (s *source) Tables(context.Context) ([]schema.TableInfo, error) {
	if err := s.RequireConnected(); err != nil {
		return nil, err
	}
	n := int64(len(s.data.records))
	return []schema.TableInfo{{
		Name:              s.name,
		Kind:              schema.KindFile,
		EstimatedRowCount: &n,
		Columns:           s.columns(),
	}}, nil
}

// Columns ignores table; a document has one.
func (s *source) Columns(_ context.Context, _ string) ([]schema.ColumnInfo, error) {
	if err := s.RequireConnected(); err != nil {
		return nil, err
	}
	return s.columns(), nil
}

func (s *source) Query(_ context.Context, opts connector.QueryOptions) (res *connector.Result, err error) {
	start := time.Now()
	defer func() { s.ObserveQuery(start, res, err) }()

	if err := s.RequireConnected(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.RawQuery) != "" {
		return nil, connector.InvalidQuery(s.Kind(), "raw queries are not supported by file sources")
	}

	out := query.Apply(s.data.records, query.Options{
		Where:   opts.Where,
		OrderBy: opts.OrderBy,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		Columns: opts.Columns,
	})
	if len(out.Skipped) > 0 {
		s.Logger().Warn("ignoring unparsable where fragments", zap.Strings("fragments", out.Skipped))
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	return connector.NewPage(out.Rows, connector.ProjectColumns(s.columns(), opts.Columns), offset, int64(out.Total)), nil
}

func (s *source) Preview(ctx context.Context, opts connector.QueryOptions, maxRows int) (*connector.Result, error) {
	return connector.DefaultPreview(ctx, s, opts, maxRows)
}

// RowCount counts the rows matching opts.Where.
func (s *source) RowCount(_ context.Context, opts connector.QueryOptions) (int64, error) {
	if err := s.RequireConnected(); err != nil {
		return 0, err
	}
	out := query.Apply(s.data.records, query.Options{Where: opts.Where})
	return int64(out.Total), nil
}

func (s *source) Stream(ctx context.Context, opts connector.QueryOptions, batchSize int, fn connector.BatchFunc) error {
	if err := s.RequireConnected(); err != nil {
		return err
	}
	return connector.DefaultStream(ctx, s, opts, batchSize, fn)
}

func (s *source) columns() []schema.ColumnInfo {
	out := make([]schema.ColumnInfo, len(s.data.columns))
	copy(out, s.data.columns)
	return out
}

// SupportedEncoding reports whether label names an encoding files can be read in.
func SupportedEncoding(label string) bool {
	_, err := lookupEncoding(label)
	return err == nil
}

// lookupEncoding returns nil for UTF-8, which needs no decoding.
func lookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc, nil
}

// decode converts raw bytes in the named encoding to UTF-8 and strips a byte order mark.
func decode(raw []byte, label string) ([]byte, error) {
	enc, err := lookupEncoding(label)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", strings.TrimSpace(label), err)
		}
		raw = decoded
	}
	return bytes.TrimPrefix(raw, utf8BOM), nil
}

func tableName(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "data"
	}
	return name
}
