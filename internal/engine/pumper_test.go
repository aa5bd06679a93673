package engine_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dataport/internal/connector"
	"dataport/internal/connector/file"
	"dataport/internal/engine"
	"dataport/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

type memorySink struct {
	records map[string][]map[string]any
	calls   int
	failAt  int
}

func newMemorySink() *memorySink {
	return &memorySink{records: map[string][]map[string]any{}}
}

func (s *memorySink) Write(_ context.Context, table string, records []map[string]any) error {
	s.calls++
	if s.failAt > 0 && s.calls >= s.failAt {
		return errors.New("disk full")
	}
	s.records[table] = append(s.records[table], records...)
	return nil
}

func contactsCSV(t *testing.T, n int, missingEmailEvery int) *file.CSV {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,name,email\n")
	for i := 1; i <= n; i++ {
		email := gofakeit.Email()
		if missingEmailEvery > 0 && i%missingEmailEvery == 0 {
			email = ""
		}
		fmt.Fprintf(&b, "%d,%s,%s\n", i, gofakeit.FirstName(), email)
	}
	c := file.NewCSV(connector.CSVConfig{})
	require.NoError(t, c.LoadBuffer([]byte(b.String()), "contacts.csv"))
	return c
}

func TestExportWithoutMappingsCopiesRecords(t *testing.T) {
	c := contactsCSV(t, 1234, 0)
	sink := newMemorySink()

	jobs, err := engine.Plan(ctx, c, nil, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "contacts", jobs[0].Table)

	var snapshots []connector.ImportProgress
	results, err := engine.Export(ctx, c, sink, jobs, engine.Options{
		BatchSize:  500,
		OnProgress: func(_ string, p connector.ImportProgress) { snapshots = append(snapshots, p) },
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, engine.StatusOK, res.Status)
	assert.Equal(t, int64(1234), res.Target)
	assert.Equal(t, int64(1234), res.Exported)
	assert.Len(t, sink.records["contacts"], 1234)
	assert.Equal(t, 3, sink.calls)

	require.Len(t, snapshots, 4, "one per batch plus the final one")
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, connector.PhaseCompleted, last.Phase)
	assert.Equal(t, 100, last.Percent())
}

type countingObserver struct{ written, rejected int }

func (o *countingObserver) ObserveExport(_ connector.SourceKind, written, rejected int) {
	o.written += written
	o.rejected += rejected
}

func TestExportRejectsRowsFailingMappings(t *testing.T) {
	c := contactsCSV(t, 100, 10)
	sink := newMemorySink()
	obs := &countingObserver{}

	mappings := []connector.FieldMapping{
		{SourceField: "id", TargetField: "externalId", Transform: &connector.FieldTransform{Type: connector.TransformNumber}},
		{SourceField: "name", TargetField: "firstName", Transform: &connector.FieldTransform{Type: connector.TransformUppercase}},
		{SourceField: "email", TargetField: "email", IsRequired: true},
		{SourceField: "source", TargetField: "source", DefaultValue: "csv-import"},
	}
	jobs, err := engine.Plan(ctx, c, []string{" Contacts "}, mappings)
	require.NoError(t, err)

	results, err := engine.Export(ctx, c, sink, jobs, engine.Options{BatchSize: 30, Observer: obs})
	require.NoError(t, err)

	res := results[0]
	assert.Equal(t, engine.StatusOK, res.Status, "rejected rows are still processed")
	assert.Equal(t, int64(90), res.Exported)
	assert.Equal(t, int64(10), res.Rejected)
	require.Len(t, res.Errors, 10)
	assert.Equal(t, 10, res.Errors[0].Row)
	assert.Equal(t, "email", res.Errors[0].Field)
	assert.Equal(t, 90, obs.written)
	assert.Equal(t, 10, obs.rejected)

	first := sink.records["contacts"][0]
	assert.Equal(t, 1.0, first["externalId"])
	assert.Equal(t, "csv-import", first["source"])
	assert.Equal(t, strings.ToUpper(first["firstName"].(string)), first["firstName"])
	assert.NotContains(t, first, "name")
}

func TestPlanUnknownTables(t *testing.T) {
	c := contactsCSV(t, 3, 0)
	_, err := engine.Plan(ctx, c, []string{"deals"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching tables found for inputs: [deals]")
}

// catalog reports a fixed set of related tables and serves every one of them from the same CSV.
type catalog struct {
	*file.CSV
	tables []schema.TableInfo
	asked  []string
}

func (c *catalog) Kind() connector.SourceKind { return connector.KindPostgres }

func (c *catalog) Tables(context.Context) ([]schema.TableInfo, error) { return c.tables, nil }

func (c *catalog) RowCount(ctx context.Context, opts connector.QueryOptions) (int64, error) {
	c.asked = append(c.asked, opts.Table)
	return c.CSV.RowCount(ctx, opts)
}

func TestPlanOrdersParentsFirst(t *testing.T) {
	tables := []schema.TableInfo{
		{Name: "deals", Schema: "crm", Dependencies: []string{"contacts", "companies"}},
		{Name: "contacts", Schema: "crm", Dependencies: []string{"companies"}},
		{Name: "companies", Schema: "crm"},
		{Name: "audit", Schema: "crm"},
	}
	c := &catalog{CSV: contactsCSV(t, 5, 0), tables: tables}

	jobs, err := engine.Plan(ctx, c, []string{"deals", "companies", "contacts"}, nil)
	require.NoError(t, err)

	var order []string
	for _, j := range jobs {
		order = append(order, j.Query.Table)
	}
	assert.Equal(t, []string{"crm.companies", "crm.contacts", "crm.deals"}, order)

	_, err = engine.Export(ctx, c, newMemorySink(), jobs, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, order, c.asked)
}

func TestSinkFailureStopsExport(t *testing.T) {
	tables := []schema.TableInfo{{Name: "a"}, {Name: "b"}}
	c := &catalog{CSV: contactsCSV(t, 50, 0), tables: tables}
	sink := newMemorySink()
	sink.failAt = 2

	jobs, err := engine.Plan(ctx, c, nil, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	results, err := engine.Export(ctx, c, sink, jobs, engine.Options{BatchSize: 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.Len(t, results, 1, "the second table never starts")
	assert.Equal(t, engine.StatusFailed, results[0].Status)
	assert.Equal(t, int64(20), int64(len(sink.records["a"])))
}

type brokenCount struct{ *file.CSV }

func (b brokenCount) RowCount(context.Context, connector.QueryOptions) (int64, error) {
	return 0, connector.QueryFailed(connector.KindCSV, errors.New("timeout"))
}

func TestFailedJobDoesNotStopExport(t *testing.T) {
	c := brokenCount{contactsCSV(t, 5, 0)}
	jobs := []engine.Job{{Table: "x"}, {Table: "y"}}

	results, err := engine.Export(ctx, c, newMemorySink(), jobs, engine.Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, engine.StatusFailed, r.Status)
		assert.Contains(t, r.ErrorMsg, "timeout")
	}
}

func TestNDJSONSink(t *testing.T) {
	var buf bytes.Buffer
	sink := engine.NewNDJSONSink(&buf)
	sink.Tagged = true

	require.NoError(t, sink.Write(ctx, "contacts", []map[string]any{{"id": 1}, {"id": 2}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, gojson.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "contacts", rec["_table"])
	assert.Equal(t, 2.0, rec["id"])
}

func TestDirSinkWritesFilePerTable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := engine.NewDirSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Write(ctx, "contacts", []map[string]any{{"id": 1}}))
	require.NoError(t, sink.Write(ctx, "deals", []map[string]any{{"id": 7}, {"id": 8}}))
	require.NoError(t, sink.Write(ctx, "contacts", []map[string]any{{"id": 2}}))
	require.NoError(t, sink.Close())

	for table, want := range map[string]int{"contacts": 2, "deals": 2} {
		f, err := os.Open(filepath.Join(dir, table+".ndjson"))
		require.NoError(t, err)
		n := 0
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			n++
		}
		f.Close()
		assert.Equal(t, want, n, table)
	}
}
