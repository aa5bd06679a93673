package connector_test

import (
	"context"
	"errors"
	"testing"

	"dataport/internal/connector"
	"dataport/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource serves rows from memory and records every query it receives.
type sliceSource struct {
	rows       []schema.Record
	hideTotal  bool
	calls      []connector.QueryOptions
	failAt     int
	connectErr error
	tablesErr  error
	connected  bool
}

func newSliceSource(n int) *sliceSource {
	rows := make([]schema.Record, n)
	for i := range rows {
		rows[i] = schema.Record{"id": schema.Number(float64(i))}
	}
	return &sliceSource{rows: rows, failAt: -1}
}

func (s *sliceSource) Query(_ context.Context, opts connector.QueryOptions) (*connector.Result, error) {
	s.calls = append(s.calls, opts)
	if s.failAt >= 0 && len(s.calls) > s.failAt {
		return nil, connector.QueryFailed(connector.KindCSV, errors.New("boom"))
	}
	start := opts.Offset
	if start > len(s.rows) {
		start = len(s.rows)
	}
	end := len(s.rows)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	page := s.rows[start:end]
	if s.hideTotal {
		return connector.NewOpenPage(page, nil, opts.Offset, end < len(s.rows)), nil
	}
	return connector.NewPage(page, nil, opts.Offset, int64(len(s.rows))), nil
}

func (s *sliceSource) Connect(context.Context) error {
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *sliceSource) Disconnect(context.Context) error {
	s.connected = false
	return nil
}

func (s *sliceSource) Tables(context.Context) ([]schema.TableInfo, error) {
	if s.tablesErr != nil {
		return nil, s.tablesErr
	}
	return []schema.TableInfo{{Name: "data", Kind: schema.KindFile}}, nil
}

func TestNewPage_HasMoreInvariant(t *testing.T) {
	faker := gofakeit.New(7)
	for i := 0; i < 200; i++ {
		total := int64(faker.Number(0, 500))
		offset := faker.Number(0, 600)
		n := 0
		if int64(offset) < total {
			n = faker.Number(0, int(total)-offset)
		}
		rows := make([]schema.Record, n)

		res := connector.NewPage(rows, nil, offset, total)

		require.NotNil(t, res.TotalRowCount)
		assert.Equal(t, int64(offset+n) < total, res.HasMore, "offset=%d rows=%d total=%d", offset, n, total)
		if res.HasMore {
			require.NotNil(t, res.NextOffset)
			assert.Equal(t, offset+n, *res.NextOffset)
		} else {
			assert.Nil(t, res.NextOffset)
		}
	}
}

func TestDefaultPreview(t *testing.T) {
	src := newSliceSource(250)

	res, err := connector.DefaultPreview(context.Background(), src, connector.QueryOptions{Table: "t", Offset: 40, Limit: 5}, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, connector.DefaultPreviewRows)
	assert.Equal(t, 0, src.calls[0].Offset)

	res, err = connector.DefaultPreview(context.Background(), src, connector.QueryOptions{Table: "t"}, 10)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 10)
}

func TestDefaultRowCount(t *testing.T) {
	src := newSliceSource(37)
	n, err := connector.DefaultRowCount(context.Background(), src, connector.QueryOptions{Table: "t"})
	require.NoError(t, err)
	assert.EqualValues(t, 37, n)
	assert.Equal(t, 1, src.calls[0].Limit)

	open := newSliceSource(237)
	open.hideTotal = true
	n, err = connector.DefaultRowCount(context.Background(), open, connector.QueryOptions{Table: "t"})
	require.NoError(t, err)
	assert.EqualValues(t, 237, n)
}

func TestDefaultStream_CoversEveryRowInOrder(t *testing.T) {
	faker := gofakeit.New(11)
	for i := 0; i < 25; i++ {
		total := faker.Number(0, 300)
		batch := faker.Number(1, 64)
		src := newSliceSource(total)

		var seen []float64
		var batches int
		err := connector.DefaultStream(context.Background(), src, connector.QueryOptions{Table: "t"}, batch,
			func(_ context.Context, rows []schema.Record) error {
				batches++
				assert.LessOrEqual(t, len(rows), batch)
				for _, r := range rows {
					seen = append(seen, r["id"].Num)
				}
				return nil
			})
		require.NoError(t, err)
		require.Len(t, seen, total)
		for j, id := range seen {
			assert.Equal(t, float64(j), id)
		}
		assert.Equal(t, (total+batch-1)/batch, batches)
	}
}

func TestDefaultStream_LimitCapsRows(t *testing.T) {
	src := newSliceSource(100)
	var got int
	err := connector.DefaultStream(context.Background(), src, connector.QueryOptions{Table: "t", Offset: 10, Limit: 25}, 10,
		func(_ context.Context, rows []schema.Record) error {
			got += len(rows)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 25, got)
	assert.Equal(t, 10, src.calls[0].Offset)
	assert.Equal(t, 5, src.calls[2].Limit)
}

func TestDefaultStream_StopsOnCallbackError(t *testing.T) {
	src := newSliceSource(100)
	stop := errors.New("stop")
	calls := 0
	err := connector.DefaultStream(context.Background(), src, connector.QueryOptions{Table: "t"}, 10,
		func(context.Context, []schema.Record) error {
			calls++
			if calls == 2 {
				return stop
			}
			return nil
		})
	assert.ErrorIs(t, err, stop)
	assert.Len(t, src.calls, 2)
}

func TestDefaultStream_PropagatesQueryError(t *testing.T) {
	src := newSliceSource(100)
	src.failAt = 1
	err := connector.DefaultStream(context.Background(), src, connector.QueryOptions{Table: "t"}, 10,
		func(context.Context, []schema.Record) error { return nil })
	assert.ErrorIs(t, err, connector.ErrQueryFailed)
}

func TestDefaultTestConnection(t *testing.T) {
	ok := newSliceSource(1)
	res := connector.DefaultTestConnection(context.Background(), ok)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"read"}, res.Permissions)
	assert.False(t, ok.connected, "disconnects afterwards")

	failing := newSliceSource(1)
	failing.connectErr = connector.ConnectionFailed(connector.KindCSV, errors.New("refused"))
	res = connector.DefaultTestConnection(context.Background(), failing)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "refused")

	noTables := newSliceSource(1)
	noTables.tablesErr = errors.New("permission denied")
	res = connector.DefaultTestConnection(context.Background(), noTables)
	assert.False(t, res.Success)
	assert.Equal(t, "permission denied", res.Error)
	assert.False(t, noTables.connected)
}

func TestQueryOptions_Target(t *testing.T) {
	err := connector.QueryOptions{}.Target(connector.KindPostgres)
	assert.ErrorIs(t, err, connector.ErrInvalidQuery)
	assert.NoError(t, connector.QueryOptions{Table: "users"}.Target(connector.KindPostgres))
	assert.NoError(t, connector.QueryOptions{RawQuery: "SELECT 1"}.Target(connector.KindPostgres))
}

func TestProjectColumns(t *testing.T) {
	cols := []schema.ColumnInfo{{Name: "a", MappedType: schema.TypeNumber}, {Name: "b", MappedType: schema.TypeString}}
	assert.Equal(t, cols, connector.ProjectColumns(cols, nil))

	got := connector.ProjectColumns(cols, []string{"b", "zz"})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, schema.TypeUnknown, got[1].MappedType)
}
