package file_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dataport/internal/connector"
	"dataport/internal/connector/file"
	"dataport/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func columnByName(t *testing.T, cols []schema.ColumnInfo, name string) schema.ColumnInfo {
	t.Helper()
	for _, c := range cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return schema.ColumnInfo{}
}

func loadCSV(t *testing.T, cfg connector.CSVConfig, body string) *file.CSV {
	t.Helper()
	c := file.NewCSV(cfg)
	require.NoError(t, c.LoadBuffer([]byte(body), "leads.csv"))
	return c
}

func TestCSV_HeaderAndNullableNumber(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "name,age\nAda,30\nGrace,\n")

	res, err := c.Query(ctx, connector.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 30.0, res.Rows[0]["age"].Num)
	assert.True(t, res.Rows[1]["age"].IsNull())
	assert.False(t, res.HasMore)

	cols, err := c.Columns(ctx, "leads")
	require.NoError(t, err)
	age := columnByName(t, cols, "age")
	assert.Equal(t, schema.TypeNumber, age.MappedType)
	assert.True(t, age.Nullable)
	name := columnByName(t, cols, "name")
	assert.Equal(t, schema.TypeString, name.MappedType)
	assert.False(t, name.Nullable)
}

func TestCSV_WhereBothClauses(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "name,status,score\nAda,LEAD,42\nGrace,LEAD,7\nLinus,CUSTOMER,99\n")

	res, err := c.Query(ctx, connector.QueryOptions{Where: "status = 'LEAD' AND score > 10"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Ada", res.Rows[0]["name"].Text())

	res, err = c.Query(ctx, connector.QueryOptions{Where: "status = 'LEAD' AND score"})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestCSV_NoHeaderCustomDelimiter(t *testing.T) {
	noHeader := false
	c := loadCSV(t, connector.CSVConfig{Delimiter: ";", HasHeader: &noHeader}, "1;x\n2;y;extra\n")

	cols, err := c.Columns(ctx, "")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "column_1", cols[0].Name)
	assert.Equal(t, "column_3", cols[2].Name)
	assert.True(t, cols[2].Nullable)

	res, err := c.Query(ctx, connector.QueryOptions{OrderBy: "column_1 DESC"})
	require.NoError(t, err)
	assert.Equal(t, "y", res.Rows[0]["column_2"].Text())
	assert.Equal(t, "extra", res.Rows[0]["column_3"].Text())
}

func TestCSV_TabDelimiterAndDuplicateHeaders(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{Delimiter: "tab"}, "id\tid\t\n1\t2\t3\n")

	cols, err := c.Columns(ctx, "")
	require.NoError(t, err)
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	assert.Equal(t, []string{"id", "id_2", "column_3"}, names)
}

func TestCSV_InvalidDelimiter(t *testing.T) {
	c := file.NewCSV(connector.CSVConfig{Delimiter: "||"})
	err := c.LoadBuffer([]byte("a||b\n1||2\n"), "x.csv")
	assert.True(t, errors.Is(err, connector.ErrInvalidConfig))
	assert.False(t, c.IsConnected())
}

func TestCSV_LeadingZerosStayText(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "code,joined\n007,03/15/2024\n010,2024-02-01\n")

	cols, err := c.Columns(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, schema.TypeString, columnByName(t, cols, "code").MappedType)
	assert.Equal(t, schema.TypeDate, columnByName(t, cols, "joined").MappedType)

	res, err := c.Query(ctx, connector.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "007", res.Rows[0]["code"].Text())
}

func TestCSV_DecodesConfiguredEncoding(t *testing.T) {
	c := file.NewCSV(connector.CSVConfig{Encoding: "iso-8859-1"})
	require.NoError(t, c.LoadBuffer([]byte("name\nJos\xe9\n"), "people.csv"))

	res, err := c.Query(ctx, connector.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "José", res.Rows[0]["name"].Text())

	bad := file.NewCSV(connector.CSVConfig{Encoding: "klingon"})
	err = bad.LoadBuffer([]byte("a\n1\n"), "x.csv")
	assert.True(t, errors.Is(err, connector.ErrInvalidConfig))
}

func TestCSV_StripsByteOrderMark(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "\ufeffid,name\n1,a\n")
	cols, err := c.Columns(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "id", cols[0].Name)
}

func TestCSV_ConnectFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,email\n1,a@example.com\n"), 0o600))

	c := file.NewCSV(connector.CSVConfig{FilePath: path})
	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	tables, err := c.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "contacts", tables[0].Name)
	assert.Equal(t, schema.KindFile, tables[0].Kind)
	assert.EqualValues(t, 1, *tables[0].EstimatedRowCount)

	require.NoError(t, c.Disconnect(ctx))
	require.NoError(t, c.Disconnect(ctx))
	assert.False(t, c.IsConnected())
}

func TestCSV_ConnectMissingFile(t *testing.T) {
	c := file.NewCSV(connector.CSVConfig{FilePath: filepath.Join(t.TempDir(), "nope.csv")})
	err := c.Connect(ctx)
	assert.True(t, errors.Is(err, connector.ErrConnectionFailed))
	assert.False(t, c.IsConnected())

	result := c.TestConnection(ctx)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestFile_NotConnected(t *testing.T) {
	c := file.NewJSON(connector.JSONConfig{})

	_, err := c.Query(ctx, connector.QueryOptions{})
	assert.True(t, errors.Is(err, connector.ErrNotConnected))
	_, err = c.Columns(ctx, "x")
	assert.True(t, errors.Is(err, connector.ErrNotConnected))
	_, err = c.Tables(ctx)
	assert.True(t, errors.Is(err, connector.ErrNotConnected))
	_, err = c.ParseStructure()
	assert.True(t, errors.Is(err, connector.ErrNotConnected))
}

func TestFile_RawQueryRejected(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "a\n1\n")
	_, err := c.Query(ctx, connector.QueryOptions{RawQuery: "SELECT 1"})
	assert.True(t, errors.Is(err, connector.ErrInvalidQuery))
}

func TestFile_TestConnectionKeepsLoadedBuffer(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "a\n1\n")
	result := c.TestConnection(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"read"}, result.Permissions)
	assert.True(t, c.IsConnected())
}

func TestFile_ProjectionAndPreview(t *testing.T) {
	c := loadCSV(t, connector.CSVConfig{}, "id,name\n1,a\n2,b\n3,c\n")

	res, err := c.Query(ctx, connector.QueryOptions{Columns: []string{"name", "missing"}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Columns, 2)
	assert.Equal(t, schema.TypeUnknown, res.Columns[1].MappedType)
	assert.Len(t, res.Rows[0], 2)
	assert.True(t, res.HasMore)
	require.NotNil(t, res.NextOffset)
	assert.Equal(t, 2, *res.NextOffset)

	preview, err := c.Preview(ctx, connector.QueryOptions{Offset: 2}, 0)
	require.NoError(t, err)
	assert.Len(t, preview.Rows, 3)
}

func TestFile_LimitAndHasMoreHold(t *testing.T) {
	faker := gofakeit.New(42)
	var b strings.Builder
	b.WriteString("id,name,score\n")
	total := 180
	for i := 0; i < total; i++ {
		fmt.Fprintf(&b, "%d,%s,%d\n", i, faker.FirstName(), faker.Number(0, 100))
	}
	c := loadCSV(t, connector.CSVConfig{}, b.String())

	for i := 0; i < 60; i++ {
		limit := faker.Number(1, 50)
		offset := faker.Number(0, 200)
		res, err := c.Query(ctx, connector.QueryOptions{Limit: limit, Offset: offset, OrderBy: "score"})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Rows), limit)
		require.NotNil(t, res.TotalRowCount)
		assert.EqualValues(t, total, *res.TotalRowCount)
		assert.Equal(t, int64(offset+len(res.Rows)) < *res.TotalRowCount, res.HasMore)
	}
}

func TestFile_StreamAndRowCount(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,status\n")
	for i := 0; i < 250; i++ {
		status := "open"
		if i%5 == 0 {
			status = "closed"
		}
		fmt.Fprintf(&b, "%d,%s\n", i, status)
	}
	c := loadCSV(t, connector.CSVConfig{}, b.String())

	var sizes []int
	err := c.Stream(ctx, connector.QueryOptions{}, 100, func(_ context.Context, rows []schema.Record) error {
		sizes = append(sizes, len(rows))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, sizes)

	n, err := c.RowCount(ctx, connector.QueryOptions{Where: "status = 'closed'"})
	require.NoError(t, err)
	assert.EqualValues(t, 50, n)
}

func TestJSON_AutoDetectsResults(t *testing.T) {
	j := file.NewJSON(connector.JSONConfig{})
	require.NoError(t, j.LoadBuffer([]byte(`{"results":[{"id":1,"createdAt":"2024-01-01"}]}`), "export.json"))

	st, err := j.ParseStructure()
	require.NoError(t, err)
	assert.Equal(t, "results", st.RootPath)
	assert.Equal(t, 1, st.RecordCount)
	assert.Equal(t, schema.TypeDate, columnByName(t, st.Columns, "createdAt").MappedType)
	assert.Equal(t, schema.TypeNumber, columnByName(t, st.Columns, "id").MappedType)
}

func TestJSON_DetectionOrder(t *testing.T) {
	cases := map[string]struct {
		doc  string
		path string
		rows int
	}{
		"root array":          {`[{"a":1},{"a":2}]`, "", 2},
		"known key":           {`{"meta":[1],"items":[{"a":1}]}`, "items", 1},
		"first array":         {`{"count":2,"people":[{"a":1},{"a":2}]}`, "people", 2},
		"single object":       {`{"a":1,"b":{"c":2}}`, "", 1},
		"scalar array values": {`{"tags":["x","y","z"]}`, "tags", 3},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			j := file.NewJSON(connector.JSONConfig{})
			require.NoError(t, j.LoadBuffer([]byte(tc.doc), "doc.json"))
			st, err := j.ParseStructure()
			require.NoError(t, err)
			assert.Equal(t, tc.path, st.RootPath)
			assert.Equal(t, tc.rows, st.RecordCount)
		})
	}
}

func TestJSON_FlattensTwoLevels(t *testing.T) {
	j := file.NewJSON(connector.JSONConfig{RootPath: "payload.contacts"})
	doc := `{"payload":{"contacts":[{"id":1,"address":{"city":"Oslo","geo":{"lat":59.9,"raw":{"src":"gps"}}},"tags":["a"]}]}}`
	require.NoError(t, j.LoadBuffer([]byte(doc), "c.json"))

	cols, err := j.Columns(ctx, "")
	require.NoError(t, err)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "address.city", "address.geo.lat", "address.geo.raw", "tags"}, names)
	assert.Equal(t, schema.TypeJSON, columnByName(t, cols, "address.geo.raw").MappedType)
	assert.Equal(t, schema.TypeJSON, columnByName(t, cols, "tags").MappedType)

	res, err := j.Query(ctx, connector.QueryOptions{Where: "address.geo.raw.src = 'gps'"})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestJSON_Failures(t *testing.T) {
	j := file.NewJSON(connector.JSONConfig{})
	err := j.LoadBuffer([]byte(`{"a": [1, 2`), "bad.json")
	assert.True(t, errors.Is(err, connector.ErrParseFailed))
	assert.False(t, j.IsConnected())

	missing := file.NewJSON(connector.JSONConfig{RootPath: "payload.items"})
	err = missing.LoadBuffer([]byte(`{"payload":{}}`), "x.json")
	assert.True(t, errors.Is(err, connector.ErrInvalidQuery))
	assert.False(t, missing.IsConnected())

	notArray := file.NewJSON(connector.JSONConfig{RootPath: "payload"})
	err = notArray.LoadBuffer([]byte(`{"payload":{"a":1}}`), "x.json")
	assert.True(t, errors.Is(err, connector.ErrInvalidQuery))
}

const catalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<catalog>
  <book id="1">
    <title>Go in Practice</title>
    <price>30.5</price>
    <published>2024-01-15</published>
    <author><name>Ann</name><country>NO</country></author>
  </book>
  <book id="2">
    <title>Systems</title>
    <price>25</price>
    <published>03/04/2023</published>
  </book>
</catalog>`

func TestXML_NestedRecordsAndAttributes(t *testing.T) {
	x := file.NewXML(connector.XMLConfig{})
	require.NoError(t, x.LoadBuffer([]byte(catalogXML), "catalog.xml"))

	st, err := x.ParseStructure()
	require.NoError(t, err)
	assert.Equal(t, "catalog.book", st.RootPath)
	assert.Equal(t, 2, st.RecordCount)
	assert.Equal(t, schema.TypeNumber, columnByName(t, st.Columns, "id").MappedType)
	assert.Equal(t, schema.TypeNumber, columnByName(t, st.Columns, "price").MappedType)
	assert.Equal(t, schema.TypeDate, columnByName(t, st.Columns, "published").MappedType)
	assert.True(t, columnByName(t, st.Columns, "author.name").Nullable)

	res, err := x.Query(ctx, connector.QueryOptions{Where: "price < 30", Columns: []string{"title"}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Systems", res.Rows[0]["title"].Text())
}

func TestXML_ContainerUnderRoot(t *testing.T) {
	x := file.NewXML(connector.XMLConfig{})
	body := `<crm>
  <meta><exported>2024-05-01</exported></meta>
  <contacts>
    <contact id="1"><name>Ada</name></contact>
    <contact id="2"><name>Grace</name></contact>
  </contacts>
</crm>`
	require.NoError(t, x.LoadBuffer([]byte(body), "crm.xml"))

	st, err := x.ParseStructure()
	require.NoError(t, err)
	assert.Equal(t, "crm.contacts.contact", st.RootPath)
	assert.Equal(t, 2, st.RecordCount)
	assert.Equal(t, schema.TypeString, columnByName(t, st.Columns, "name").MappedType)

	res, err := x.Query(ctx, connector.QueryOptions{OrderBy: "id DESC"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Grace", res.Rows[0]["name"].Text())
}

func TestXML_RootPathToSingleElement(t *testing.T) {
	x := file.NewXML(connector.XMLConfig{RootPath: "catalog.book"})
	require.NoError(t, x.LoadBuffer([]byte(`<catalog><book id="7"><title>Solo</title></book></catalog>`), "one.xml"))

	res, err := x.Query(ctx, connector.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 7.0, res.Rows[0]["id"].Num)
	assert.Equal(t, "Solo", res.Rows[0]["title"].Text())
}

func TestXML_MixedContentAndMalformed(t *testing.T) {
	x := file.NewXML(connector.XMLConfig{})
	require.NoError(t, x.LoadBuffer([]byte(`<notes><note lang="en">hello</note><note lang="de">hallo</note></notes>`), "n.xml"))
	res, err := x.Query(ctx, connector.QueryOptions{Where: "lang = 'de'"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "hallo", res.Rows[0]["_text"].Text())

	bad := file.NewXML(connector.XMLConfig{})
	err = bad.LoadBuffer([]byte(`<notes><note></notes>`), "bad.xml")
	assert.True(t, errors.Is(err, connector.ErrParseFailed))
	assert.False(t, bad.IsConnected())
}
