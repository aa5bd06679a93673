// Package connector defines the contract every data source implements and the
// behavior they share.
package connector

import (
	"context"
	"time"

	"dataport/internal/logger"
	"dataport/internal/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchFunc receives one batch of a stream. Returning an error stops the stream.
type BatchFunc func(ctx context.Context, rows []schema.Record) error

// Connector is the uniform contract over every source kind.
// A Connector is not safe for concurrent use.
type Connector interface {
	Kind() SourceKind
	Connect(ctx context.Context) error
	// Disconnect releases resources. It is idempotent and never fails.
	Disconnect(ctx context.Context) error
	IsConnected() bool
	// TestConnection never returns an error; failures are reported in the result.
	TestConnection(ctx context.Context) TestResult
	Tables(ctx context.Context) ([]schema.TableInfo, error)
	Columns(ctx context.Context, table string) ([]schema.ColumnInfo, error)
	Query(ctx context.Context, opts QueryOptions) (*Result, error)
	Preview(ctx context.Context, opts QueryOptions, maxRows int) (*Result, error)
	RowCount(ctx context.Context, opts QueryOptions) (int64, error)
	// Stream delivers rows in batches of batchSize, waiting for fn before fetching the next batch.
	Stream(ctx context.Context, opts QueryOptions, batchSize int, fn BatchFunc) error
}

type TestResult struct {
	Success       bool          `json:"success"`
	Latency       time.Duration `json:"latency"`
	Permissions   []string      `json:"permissions,omitempty"`
	ServerVersion string        `json:"serverVersion,omitempty"`
	User          string        `json:"user,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Observer is told about connector activity; metrics collectors implement it.
type Observer interface {
	ObserveConnect(kind SourceKind, d time.Duration, err error)
	ObserveQuery(kind SourceKind, d time.Duration, rows int, err error)
}

// Base carries the state every connector has. Concrete connectors embed it.
type Base struct {
	kind      SourceKind
	id        string
	connected bool
	observer  Observer
	log       *zap.Logger
}

func NewBase(kind SourceKind) Base {
	id := uuid.NewString()
	return Base{
		kind: kind,
		id:   id,
		log: logger.With(
			zap.String("component", "connector"),
			zap.String("source_kind", string(kind)),
			zap.String("connector_id", id),
		),
	}
}

func (b *Base) Kind() SourceKind { return b.kind }

func (b *Base) ID() string { return b.id }

func (b *Base) IsConnected() bool { return b.connected }

func (b *Base) Logger() *zap.Logger { return b.log }

// SetObserver attaches an observer for connect and query events.
func (b *Base) SetObserver(o Observer) { b.observer = o }

// MarkConnected records a connection state change.
func (b *Base) MarkConnected(connected bool) {
	if connected && !b.connected {
		b.log.Debug("connector connected")
	} else if !connected && b.connected {
		b.log.Debug("connector disconnected")
	}
	b.connected = connected
}

// RequireConnected fails with NotConnected unless a connect succeeded.
func (b *Base) RequireConnected() error {
	if !b.connected {
		return NotConnected(b.kind)
	}
	return nil
}

func (b *Base) ObserveConnect(start time.Time, err error) {
	if b.observer != nil {
		b.observer.ObserveConnect(b.kind, time.Since(start), err)
	}
}

func (b *Base) ObserveQuery(start time.Time, res *Result, err error) {
	if err != nil {
		b.log.Warn("query failed", zap.Error(err))
	}
	if b.observer == nil {
		return
	}
	rows := 0
	if res != nil {
		rows = len(res.Rows)
	}
	b.observer.ObserveQuery(b.kind, time.Since(start), rows, err)
}

// Querier is the single operation the default behaviors build on.
type Querier interface {
	Query(ctx context.Context, opts QueryOptions) (*Result, error)
}

type lifecycle interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Tables(ctx context.Context) ([]schema.TableInfo, error)
}

// DefaultTestConnection connects, lists tables and disconnects, timing the round trip.
func DefaultTestConnection(ctx context.Context, c lifecycle) TestResult {
	start := time.Now()
	defer func() { _ = c.Disconnect(ctx) }()

	if err := c.Connect(ctx); err != nil {
		return TestResult{Latency: time.Since(start), Error: err.Error()}
	}
	if _, err := c.Tables(ctx); err != nil {
		return TestResult{Latency: time.Since(start), Error: err.Error()}
	}
	return TestResult{Success: true, Latency: time.Since(start), Permissions: []string{"read"}}
}

// DefaultPreview reads the first maxRows rows.
func DefaultPreview(ctx context.Context, q Querier, opts QueryOptions, maxRows int) (*Result, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	opts.Limit = maxRows
	opts.Offset = 0
	return q.Query(ctx, opts)
}

// DefaultRowCount reads one row and reports the total. Sources that cannot report a total
// are read in full and counted.
func DefaultRowCount(ctx context.Context, q Querier, opts QueryOptions) (int64, error) {
	probe := opts
	probe.Limit = 1
	probe.Offset = 0
	res, err := q.Query(ctx, probe)
	if err != nil {
		return 0, err
	}
	if res.TotalRowCount != nil {
		return *res.TotalRowCount, nil
	}

	var n int64
	err = DefaultStream(ctx, q, opts, DefaultPreviewRows, func(_ context.Context, rows []schema.Record) error {
		n += int64(len(rows))
		return nil
	})
	return n, err
}

// DefaultStream pages through q with batchSize rows per call until the total is reached.
// A non-zero opts.Limit caps the number of rows delivered.
func DefaultStream(ctx context.Context, q Querier, opts QueryOptions, batchSize int, fn BatchFunc) error {
	if batchSize <= 0 {
		batchSize = DefaultPreviewRows
	}
	remaining := opts.Limit
	offset := opts.Offset

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := opts
		page.Offset = offset
		page.Limit = batchSize
		if remaining > 0 && remaining < batchSize {
			page.Limit = remaining
		}

		res, err := q.Query(ctx, page)
		if err != nil {
			return err
		}
		if len(res.Rows) == 0 {
			return nil
		}
		if err := fn(ctx, res.Rows); err != nil {
			return err
		}

		offset += len(res.Rows)
		if opts.Limit > 0 {
			remaining -= len(res.Rows)
			if remaining <= 0 {
				return nil
			}
		}
		if res.TotalRowCount != nil {
			if int64(offset) >= *res.TotalRowCount {
				return nil
			}
		} else if !res.HasMore {
			return nil
		}
	}
}
