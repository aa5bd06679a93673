package relational

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"dataport/internal/connector"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectTimeout = 10 * time.Second
	idleTimeout    = 30 * time.Second
)

type resultColumn struct {
	name   string
	native string
}

type rowSet struct {
	columns []resultColumn
	rows    [][]any
}

// session is the single live connection a connector owns.
type session interface {
	query(ctx context.Context, stmt string, args ...any) (*rowSet, error)
	close()
}

// pgSession holds one pooled connection checked out for the connector's lifetime.
type pgSession struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

func postgresURL(c connector.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if c.SSL {
		sslmode = "require"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

func openPostgres(ctx context.Context, c connector.DatabaseConfig) (*pgSession, error) {
	poolConfig, err := pgxpool.ParseConfig(postgresURL(c))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolConfig.MaxConns = 1
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = idleTimeout
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &pgSession{pool: pool, conn: conn}, nil
}

func (s *pgSession) query(ctx context.Context, stmt string, args ...any) (*rowSet, error) {
	rows, err := s.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	typeMap := s.conn.Conn().TypeMap()
	fds := rows.FieldDescriptions()
	rs := &rowSet{columns: make([]resultColumn, len(fds))}
	for i, fd := range fds {
		rs.columns[i] = resultColumn{name: fd.Name, native: oidTypeName(typeMap, fd.DataTypeOID)}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rs.rows = append(rs.rows, values)
	}
	return rs, rows.Err()
}

func (s *pgSession) close() {
	s.conn.Release()
	s.pool.Close()
}

// oidTypeName resolves a result column OID to its type name, e.g. int4 or _text.
func oidTypeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid_%d", oid)
}

// sqlSession is a database/sql handle limited to one connection.
type sqlSession struct {
	db *sql.DB
}

func openSQL(ctx context.Context, driverName, dsn string) (*sqlSession, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(idleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &sqlSession{db: db}, nil
}

func (s *sqlSession) query(ctx context.Context, query string, args ...any) (*rowSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	rs := &rowSet{columns: make([]resultColumn, len(types))}
	for i, ct := range types {
		rs.columns[i] = resultColumn{name: ct.Name(), native: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.rows = append(rs.rows, values)
	}
	return rs, rows.Err()
}

func (s *sqlSession) close() {
	_ = s.db.Close()
}
