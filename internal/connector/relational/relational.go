// Package relational implements connectors over SQL databases. PostgreSQL runs on pgx;
// MySQL, Oracle and SQL Server run on database/sql through optional drivers.
package relational

import (
	"context"
	"errors"
	"strings"
	"time"

	"dataport/internal/connector"
	"dataport/internal/dialect"
	"dataport/internal/drivers"
	"dataport/internal/schema"

	"go.uber.org/zap"
)

type opener func(ctx context.Context) (session, error)

// Connector is a relational source. It owns exactly one session between Connect and Disconnect.
type Connector struct {
	connector.Base

	db      connector.DatabaseConfig
	dialect dialect.Dialect
	schema  string
	open    opener
	sess    session
}

var _ connector.Connector = (*Connector)(nil)

func newConnector(kind connector.SourceKind, db connector.DatabaseConfig, open opener) *Connector {
	d, _ := dialect.GetDialect(kind)
	return &Connector{
		Base:    connector.NewBase(kind),
		db:      db,
		dialect: d,
		schema:  d.DefaultSchema(db),
		open:    open,
	}
}

func NewPostgres(cfg connector.PostgresConfig) *Connector {
	return newConnector(connector.KindPostgres, cfg.DatabaseConfig, func(ctx context.Context) (session, error) {
		return openPostgres(ctx, cfg.DatabaseConfig)
	})
}

func NewMySQL(cfg connector.MySQLConfig, reg *drivers.Registry) *Connector {
	return newSQL(cfg, cfg.DatabaseConfig, reg)
}

func NewOracle(cfg connector.OracleConfig, reg *drivers.Registry) *Connector {
	return newSQL(cfg, cfg.DatabaseConfig, reg)
}

func NewMSSQL(cfg connector.MSSQLConfig, reg *drivers.Registry) *Connector {
	return newSQL(cfg, cfg.DatabaseConfig, reg)
}

// newSQL resolves the driver on Connect, so a missing driver only affects this source.
func newSQL(cfg connector.ConnectionConfig, db connector.DatabaseConfig, reg *drivers.Registry) *Connector {
	kind := cfg.Kind()
	return newConnector(kind, db, func(ctx context.Context) (session, error) {
		p, err := reg.Lookup(kind)
		if err != nil {
			return nil, err
		}
		dsn, err := p.DSN(cfg)
		if err != nil {
			return nil, err
		}
		return openSQL(ctx, p.DriverName(), dsn)
	})
}

// newWithSession builds a connector over an already open session.
func newWithSession(kind connector.SourceKind, db connector.DatabaseConfig, sess session) *Connector {
	return newConnector(kind, db, func(context.Context) (session, error) { return sess, nil })
}

// Schema is the schema (or owner) catalog queries run against.
func (c *Connector) Schema() string { return c.schema }

func (c *Connector) Connect(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.ObserveConnect(start, err) }()

	if c.sess != nil {
		return nil
	}
	sess, err := c.open(ctx)
	if err != nil {
		return connector.ConnectionFailed(c.Kind(), err)
	}
	c.sess = sess
	c.MarkConnected(true)
	c.Logger().Info("connected to database",
		zap.String("host", c.db.Host),
		zap.String("database", c.db.Database),
		zap.String("schema", c.schema),
	)
	return nil
}

// Disconnect releases the session, whatever state earlier calls left it in.
func (c *Connector) Disconnect(context.Context) error {
	if c.sess != nil {
		c.sess.close()
		c.sess = nil
	}
	c.MarkConnected(false)
	return nil
}

// TestConnection connects if needed and reports the server version and current user.
func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	start := time.Now()
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return connector.TestResult{Latency: time.Since(start), Error: err.Error()}
		}
		defer func() { _ = c.Disconnect(ctx) }()
	}

	version, err := c.scalar(ctx, c.dialect.VersionQuery())
	if err != nil {
		return connector.TestResult{Latency: time.Since(start), Error: connector.QueryFailed(c.Kind(), err).Error()}
	}
	user, err := c.scalar(ctx, c.dialect.UserQuery())
	if err != nil {
		c.Logger().Debug("user probe failed", zap.Error(err))
	}
	return connector.TestResult{
		Success:       true,
		Latency:       time.Since(start),
		Permissions:   []string{"read"},
		ServerVersion: version,
		User:          user,
	}
}

func (c *Connector) scalar(ctx context.Context, stmt string, args ...any) (string, error) {
	rs, err := c.sess.query(ctx, stmt, args...)
	if err != nil {
		return "", err
	}
	if len(rs.rows) == 0 || len(rs.rows[0]) == 0 {
		return "", nil
	}
	return text(rs.rows[0][0]), nil
}

// Tables lists base tables and views with their foreign keys and load dependencies.
func (c *Connector) Tables(ctx context.Context) ([]schema.TableInfo, error) {
	if err := c.RequireConnected(); err != nil {
		return nil, err
	}

	q, args := c.dialect.TablesQuery(c.schema)
	rs, err := c.sess.query(ctx, q, args...)
	if err != nil {
		return nil, connector.QueryFailed(c.Kind(), err)
	}

	tables := make([]schema.TableInfo, 0, len(rs.rows))
	index := make(map[string]int, len(rs.rows))
	for _, row := range rs.rows {
		t := schema.TableInfo{
			Name:   text(row[0]),
			Schema: text(row[1]),
			Kind:   schema.KindTable,
		}
		if strings.Contains(strings.ToUpper(text(row[2])), "VIEW") {
			t.Kind = schema.KindView
		}
		if n, ok := toInt64(row[3]); ok && n >= 0 {
			t.EstimatedRowCount = &n
		}
		index[t.Name] = len(tables)
		tables = append(tables, t)
	}

	q, args = c.dialect.ForeignKeysQuery(c.schema)
	fks, err := c.sess.query(ctx, q, args...)
	if err != nil {
		// Catalog views for constraints are not always readable; tables are still useful.
		c.Logger().Warn("foreign key discovery failed", zap.Error(err))
	} else {
		for _, row := range fks.rows {
			i, ok := index[text(row[0])]
			if !ok {
				continue
			}
			tables[i].ForeignKeys = append(tables[i].ForeignKeys, schema.ForeignKey{
				Column:    text(row[1]),
				RefTable:  text(row[2]),
				RefColumn: text(row[3]),
			})
		}
	}

	schema.LinkDependencies(tables)
	return tables, nil
}

// splitTable separates an optional schema prefix from a table name.
func (c *Connector) splitTable(table string) (string, string) {
	table = strings.TrimSpace(table)
	if i := strings.LastIndexByte(table, '.'); i > 0 {
		return table[:i], table[i+1:]
	}
	return c.schema, table
}

// Columns joins catalog column metadata with primary keys and samples up to five rows.
func (c *Connector) Columns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	if err := c.RequireConnected(); err != nil {
		return nil, err
	}
	owner, name := c.splitTable(table)

	q, args := c.dialect.ColumnsQuery(owner, name)
	rs, err := c.sess.query(ctx, q, args...)
	if err != nil {
		return nil, connector.QueryFailed(c.Kind(), err)
	}
	if len(rs.rows) == 0 {
		return nil, connector.InvalidQuery(c.Kind(), "table %q not found in schema %q", name, owner)
	}

	cols := make([]schema.ColumnInfo, len(rs.rows))
	for i, row := range rs.rows {
		native := text(row[1])
		cols[i] = schema.ColumnInfo{
			Name:         text(row[0]),
			NativeType:   native,
			MappedType:   c.dialect.MapType(native),
			Nullable:     isYes(row[2]),
			MaxLength:    intPtr(row[3]),
			Precision:    intPtr(row[4]),
			Scale:        intPtr(row[5]),
			IsPrimaryKey: isYes(row[6]),
		}
	}

	c.sample(ctx, owner+"."+name, cols)
	return cols, nil
}

func (c *Connector) sample(ctx context.Context, table string, cols []schema.ColumnInfo) {
	stmt := c.dialect.Paginate(connector.BuildSelect(connector.QueryOptions{Table: table}, c.dialect.EscapeIdentifier), schema.MaxSampleValues, 0)
	rs, err := c.sess.query(ctx, stmt)
	if err != nil {
		c.Logger().Warn("sampling rows failed", zap.String("table", table), zap.Error(err))
		return
	}

	pos := make(map[string]int, len(rs.columns))
	for i, rc := range rs.columns {
		pos[rc.name] = i
	}
	for i := range cols {
		j, ok := pos[cols[i].Name]
		if !ok {
			continue
		}
		for _, row := range rs.rows {
			cols[i].AddSample(normalize(row[j], cols[i].MappedType))
		}
	}
}

// Query runs a count and a data statement. WHERE and ORDER BY reach the server unchanged.
func (c *Connector) Query(ctx context.Context, opts connector.QueryOptions) (res *connector.Result, err error) {
	start := time.Now()
	defer func() { c.ObserveQuery(start, res, err) }()

	if err := c.RequireConnected(); err != nil {
		return nil, err
	}
	st, err := dialect.Build(c.dialect, c.schema, opts)
	if err != nil {
		return nil, err
	}

	total, err := c.count(ctx, st)
	if err != nil {
		return nil, err
	}
	rows, cols, err := c.fetch(ctx, st)
	if err != nil {
		return nil, err
	}
	return connector.NewPage(rows, cols, max(opts.Offset, 0), total), nil
}

func (c *Connector) Preview(ctx context.Context, opts connector.QueryOptions, maxRows int) (*connector.Result, error) {
	return connector.DefaultPreview(ctx, c, opts, maxRows)
}

// RowCount runs only the COUNT(*) statement.
func (c *Connector) RowCount(ctx context.Context, opts connector.QueryOptions) (int64, error) {
	if err := c.RequireConnected(); err != nil {
		return 0, err
	}
	st, err := dialect.Build(c.dialect, c.schema, opts)
	if err != nil {
		return 0, err
	}
	return c.count(ctx, st)
}

// Stream counts once, then pages with OFFSET until that total (or opts.Limit) is reached.
func (c *Connector) Stream(ctx context.Context, opts connector.QueryOptions, batchSize int, fn connector.BatchFunc) error {
	if err := c.RequireConnected(); err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = connector.DefaultPreviewRows
	}
	st, err := dialect.Build(c.dialect, c.schema, opts)
	if err != nil {
		return err
	}
	total, err := c.count(ctx, st)
	if err != nil {
		return err
	}

	offset := max(opts.Offset, 0)
	end := total
	if opts.Limit > 0 && int64(offset+opts.Limit) < end {
		end = int64(offset + opts.Limit)
	}

	for int64(offset) < end {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := opts
		page.Offset = offset
		page.Limit = int(min(int64(batchSize), end-int64(offset)))

		pst, err := dialect.Build(c.dialect, c.schema, page)
		if err != nil {
			return err
		}
		start := time.Now()
		rows, cols, err := c.fetch(ctx, pst)
		c.ObserveQuery(start, &connector.Result{Rows: rows, Columns: cols}, err)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(ctx, rows); err != nil {
			return err
		}
		offset += len(rows)
	}
	return nil
}

func (c *Connector) count(ctx context.Context, st dialect.Statements) (int64, error) {
	rs, err := c.sess.query(ctx, st.Count, st.Args...)
	if err != nil {
		return 0, connector.QueryFailed(c.Kind(), err)
	}
	if len(rs.rows) == 0 || len(rs.rows[0]) == 0 {
		return 0, connector.QueryFailed(c.Kind(), errors.New("count query returned no rows"))
	}
	n, ok := toInt64(rs.rows[0][0])
	if !ok {
		return 0, connector.QueryFailed(c.Kind(), errors.New("count query returned a non-numeric value"))
	}
	return n, nil
}

func (c *Connector) fetch(ctx context.Context, st dialect.Statements) ([]schema.Record, []schema.ColumnInfo, error) {
	rs, err := c.sess.query(ctx, st.Data, st.Args...)
	if err != nil {
		return nil, nil, connector.QueryFailed(c.Kind(), err)
	}

	cols := make([]schema.ColumnInfo, len(rs.columns))
	for i, rc := range rs.columns {
		cols[i] = schema.ColumnInfo{
			Name:       rc.name,
			NativeType: rc.native,
			MappedType: c.dialect.MapType(rc.native),
			Nullable:   true,
		}
	}

	rows := make([]schema.Record, len(rs.rows))
	for i, raw := range rs.rows {
		rec := make(schema.Record, len(cols))
		for j, col := range cols {
			rec[col.Name] = normalize(raw[j], col.MappedType)
		}
		rows[i] = rec
	}
	return rows, cols, nil
}
