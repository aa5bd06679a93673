// Package rest reads records from JSON HTTP APIs. Pagination is translated into request
// parameters; filtering and sorting run client-side on the fetched rows.
package rest

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"dataport/internal/connector"
	"dataport/internal/query"
	"dataport/internal/schema"

	"go.uber.org/zap"
)

// flattenDepth flattens one level of nested objects; deeper objects and arrays stay JSON.
const flattenDepth = 1

// recordKeys are the envelope properties tried when no records path is configured.
var recordKeys = []string{"data", "results", "items"}

type Connector struct {
	connector.Base

	cfg     connector.RESTConfig
	client  *Client
	pager   pager
	columns []schema.ColumnInfo
}

var _ connector.Connector = (*Connector)(nil)

// Option customizes a Connector.
type Option func(*ClientConfig)

// WithTransport routes requests through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *ClientConfig) { c.Transport = rt }
}

func New(cfg connector.RESTConfig, opts ...Option) *Connector {
	cc := ClientConfig{
		BaseURL:   cfg.BaseURL,
		Headers:   cfg.Headers,
		Auth:      cfg.Auth,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		RateLimit: cfg.RateLimit,
	}
	for _, opt := range opts {
		opt(&cc)
	}
	return &Connector{
		Base:   connector.NewBase(connector.KindREST),
		cfg:    cfg,
		client: NewClient(cc),
		pager:  newPager(cfg.Pagination),
	}
}

// Connect only validates the configuration; REST sources hold no connection.
func (c *Connector) Connect(context.Context) (err error) {
	start := time.Now()
	defer func() { c.ObserveConnect(start, err) }()

	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return connector.InvalidConfig(connector.KindREST, "baseUrl is required")
	}
	if strings.TrimSpace(c.cfg.Endpoint) == "" {
		return connector.InvalidConfig(connector.KindREST, "endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.cfg.BaseURL); err != nil {
		return connector.InvalidConfig(connector.KindREST, "baseUrl %q is not a valid URL", c.cfg.BaseURL)
	}
	c.MarkConnected(true)
	return nil
}

func (c *Connector) Disconnect(context.Context) error {
	c.columns = nil
	c.MarkConnected(false)
	return nil
}

// TestConnection requests a single page and reports whether the endpoint answered.
func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	start := time.Now()
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return connector.TestResult{Latency: time.Since(start), Error: err.Error()}
		}
		defer c.Disconnect(ctx)
	}
	if _, _, err := c.window(ctx, 0, 1); err != nil {
		return connector.TestResult{Latency: time.Since(start), Error: err.Error()}
	}
	return connector.TestResult{Success: true, Latency: time.Since(start), Permissions: []string{"read"}}
}

// Tables returns the endpoint as a single collection.
func (c *Connector) Tables(context.Context) ([]schema.TableInfo, error) {
	if err := c.RequireConnected(); err != nil {
		return nil, err
	}
	return []schema.TableInfo{{Name: c.tableName(), Kind: schema.KindCollection}}, nil
}

func (c *Connector) tableName() string {
	p := strings.Trim(c.cfg.Endpoint, "/")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if name := path.Base(p); name != "." && name != "/" && name != "" {
		return name
	}
	return "data"
}

// Columns infers the schema from the first records of the endpoint.
func (c *Connector) Columns(ctx context.Context, _ string) ([]schema.ColumnInfo, error) {
	if err := c.RequireConnected(); err != nil {
		return nil, err
	}
	if c.columns != nil {
		return c.columns, nil
	}
	items, _, err := c.window(ctx, 0, schema.InferSampleSize)
	if err != nil {
		return nil, err
	}
	col := collect(items)
	c.columns = schema.InferColumns(col.Records(), col.Order(), schema.ISODate)
	return c.columns, nil
}

// Query fetches the remote window [offset, offset+limit), then filters, sorts and projects it.
// Without a limit one page is read.
func (c *Connector) Query(ctx context.Context, opts connector.QueryOptions) (res *connector.Result, err error) {
	start := time.Now()
	defer func() { c.ObserveQuery(start, res, err) }()

	if err := c.RequireConnected(); err != nil {
		return nil, err
	}
	if opts.RawQuery != "" {
		return nil, connector.InvalidQuery(connector.KindREST, "raw queries are not supported by REST sources")
	}

	offset := max(opts.Offset, 0)
	limit := opts.Limit
	if limit <= 0 {
		limit = c.pager.cfg.PageSize
		if c.pager.cfg.Type == connector.PaginationNone {
			limit = math.MaxInt
		}
	}

	items, st, err := c.window(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	col := collect(items)
	out := c.apply(col.Records(), opts)
	columns := schema.InferColumns(col.Records(), col.Order(), schema.ISODate)

	res = &connector.Result{Rows: out, Columns: connector.ProjectColumns(columns, opts.Columns)}
	// HasMore and NextOffset count raw remote records. The API total says nothing about how
	// many records match a filter, so a filtered page reports no total.
	next := offset + len(items)
	if st.total != nil {
		res.HasMore = int64(next) < *st.total
		if query.ParseWhere(opts.Where).Empty() {
			res.TotalRowCount = st.total
		}
	} else {
		res.HasMore = st.more
	}
	if res.HasMore {
		res.NextOffset = &next
		if c.pager.cfg.Type == connector.PaginationCursor {
			res.NextCursor = st.cursor
		}
	}
	return res, nil
}

func (c *Connector) apply(records []schema.Record, opts connector.QueryOptions) []schema.Record {
	out := query.Apply(records, query.Options{Where: opts.Where, OrderBy: opts.OrderBy, Columns: opts.Columns})
	if len(out.Skipped) > 0 {
		c.Logger().Warn("ignored unparsable where clauses", zap.Strings("fragments", out.Skipped))
	}
	return out.Rows
}

func (c *Connector) Preview(ctx context.Context, opts connector.QueryOptions, maxRows int) (*connector.Result, error) {
	return connector.DefaultPreview(ctx, c, opts, maxRows)
}

// RowCount uses the API reported total when there is no filter, otherwise it counts matches.
func (c *Connector) RowCount(ctx context.Context, opts connector.QueryOptions) (int64, error) {
	if err := c.RequireConnected(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(opts.Where) == "" {
		if _, st, err := c.window(ctx, 0, 1); err != nil {
			return 0, err
		} else if st.total != nil {
			return *st.total, nil
		}
	}

	var n int64
	err := c.Stream(ctx, opts, connector.DefaultPreviewRows, func(_ context.Context, rows []schema.Record) error {
		n += int64(len(rows))
		return nil
	})
	return n, err
}

// Stream walks the remote pages once, starting at opts.Offset, filtering each page and
// delivering matches in batches. A non-zero opts.Limit caps the rows delivered.
// Sorting applies within a page only.
func (c *Connector) Stream(ctx context.Context, opts connector.QueryOptions, batchSize int, fn connector.BatchFunc) error {
	if err := c.RequireConnected(); err != nil {
		return err
	}
	if opts.RawQuery != "" {
		return connector.InvalidQuery(connector.KindREST, "raw queries are not supported by REST sources")
	}
	if batchSize <= 0 {
		batchSize = connector.DefaultPreviewRows
	}

	var (
		buf       []schema.Record
		delivered int
		cbErr     error
	)
	flush := func(rows []schema.Record) bool {
		if len(rows) == 0 {
			return true
		}
		if cbErr = fn(ctx, rows); cbErr != nil {
			return false
		}
		delivered += len(rows)
		return true
	}

	err := c.pager.walk(ctx, max(opts.Offset, 0), c.fetch, c.totalOf, func(p *page) bool {
		if cbErr = ctx.Err(); cbErr != nil {
			return false
		}
		start := time.Now()
		rows := c.apply(collect(p.items).Records(), opts)
		c.ObserveQuery(start, &connector.Result{Rows: rows}, nil)

		buf = append(buf, rows...)
		done := opts.Limit > 0 && delivered+len(buf) >= opts.Limit
		if done {
			buf = buf[:opts.Limit-delivered]
		}
		for len(buf) >= batchSize {
			if !flush(buf[:batchSize]) {
				return false
			}
			buf = buf[batchSize:]
		}
		return !done
	})
	if err != nil {
		return err
	}
	if cbErr != nil {
		return cbErr
	}
	for len(buf) > 0 && cbErr == nil {
		n := min(batchSize, len(buf))
		flush(buf[:n])
		buf = buf[n:]
	}
	return cbErr
}

// windowState describes what the walk learnt beyond the records themselves.
type windowState struct {
	total  *int64
	cursor string
	more   bool
}

// window collects up to limit raw records starting at offset.
func (c *Connector) window(ctx context.Context, offset, limit int) ([]any, windowState, error) {
	var (
		items []any
		st    windowState
	)
	err := c.pager.walk(ctx, offset, c.fetch, c.totalOf, func(p *page) bool {
		if st.total == nil {
			st.total = p.total
		}
		need := limit - len(items)
		if len(p.items) > need {
			items = append(items, p.items[:need]...)
			st.more = true
			return false
		}
		items = append(items, p.items...)
		st.cursor = p.cursor
		st.more = !p.exhausted
		return len(items) < limit
	})
	return items, st, err
}

// fetch sends one request for the endpoint and extracts the record array.
func (c *Connector) fetch(ctx context.Context, params url.Values) ([]any, any, error) {
	q := url.Values{}
	for k, v := range c.cfg.QueryParams {
		q.Set(k, v)
	}
	for k, v := range params {
		q[k] = v
	}

	method := strings.ToUpper(c.cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	resp, err := c.client.Do(ctx, &Request{Method: method, Path: c.cfg.Endpoint, Query: q})
	if err != nil {
		return nil, nil, connector.QueryFailed(connector.KindREST, err)
	}
	doc, err := resp.Decode()
	if err != nil {
		return nil, nil, connector.ParseFailed(connector.KindREST, err)
	}
	items, err := c.records(doc)
	if err != nil {
		return nil, nil, err
	}
	c.Logger().Debug("page fetched", zap.String("endpoint", c.cfg.Endpoint), zap.Int("records", len(items)))
	return items, doc, nil
}

// records locates the record array: the configured path, a known envelope key, or the whole body.
func (c *Connector) records(doc any) ([]any, error) {
	if c.cfg.RecordsPath != "" {
		node, ok := schema.Resolve(doc, c.cfg.RecordsPath)
		if !ok {
			return nil, connector.InvalidQuery(connector.KindREST, "recordsPath %q does not resolve in the response", c.cfg.RecordsPath)
		}
		return asItems(node), nil
	}
	if obj, ok := doc.(*schema.Object); ok {
		for _, key := range recordKeys {
			if arr, ok := obj.Fields[key].([]any); ok {
				return arr, nil
			}
		}
	}
	return asItems(doc), nil
}

func asItems(node any) []any {
	switch n := node.(type) {
	case []any:
		return n
	case nil:
		return nil
	default:
		return []any{n}
	}
}

func (c *Connector) totalOf(doc any) *int64 {
	if c.cfg.TotalPath == "" {
		return nil
	}
	node, ok := schema.Resolve(doc, c.cfg.TotalPath)
	if !ok {
		return nil
	}
	f, ok := schema.FromNative(node).Float()
	if !ok {
		return nil
	}
	n := int64(f)
	return &n
}

// collect flattens one level of nesting. Scalars become a single "value" column.
func collect(items []any) *schema.Collector {
	c := schema.NewCollector()
	for _, item := range items {
		obj, ok := item.(*schema.Object)
		if !ok {
			obj = schema.NewObject()
			obj.Set("value", item)
		}
		c.Add(schema.Flatten(obj, flattenDepth), nil)
	}
	return c
}
