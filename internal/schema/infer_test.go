package schema_test

import (
	"testing"

	"dataport/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapNativeType(t *testing.T) {
	cases := map[string]schema.MappedType{
		"int4":              schema.TypeNumber,
		"NUMBER(10,2)":      schema.TypeNumber,
		"numeric":           schema.TypeNumber,
		"double precision":  schema.TypeNumber,
		"bool":              schema.TypeBoolean,
		"bit":               schema.TypeBoolean,
		"timestamptz":       schema.TypeDate,
		"DATE":              schema.TypeDate,
		"jsonb":             schema.TypeJSON,
		"character varying": schema.TypeString,
		"VARCHAR2":          schema.TypeString,
		"text":              schema.TypeString,
		"BLOB":              schema.TypeUnknown,
		"bytea":             schema.TypeUnknown,
		"uuid":              schema.TypeString,
		"":                  schema.TypeUnknown,
	}
	for native, want := range cases {
		assert.Equal(t, want, schema.MapNativeType(native), native)
	}
}

func TestCast(t *testing.T) {
	assert.True(t, schema.Cast("", schema.CommonDate).IsNull())
	assert.True(t, schema.Cast("   ", schema.CommonDate).IsNull())

	n := schema.Cast("30", schema.CommonDate)
	require.Equal(t, schema.KindNumber, n.Kind)
	assert.Equal(t, 30.0, n.Num)
	assert.Equal(t, "30", n.Text())

	assert.Equal(t, schema.KindNumber, schema.Cast("-12.50", nil).Kind)
	assert.Equal(t, "-12.50", schema.Cast("-12.50", nil).Text())
	assert.Equal(t, schema.KindNumber, schema.Cast("0.5", nil).Kind)
	assert.Equal(t, schema.KindString, schema.Cast("007", nil).Kind)

	assert.Equal(t, schema.Bool(true), schema.Cast("TRUE", nil))
	assert.Equal(t, schema.Bool(false), schema.Cast("false", nil))

	for _, s := range []string{"2024-01-31", "01/31/2024", "31-01-2024", "2024-01-31T10:00:00Z"} {
		v := schema.Cast(s, schema.CommonDate)
		assert.Equal(t, schema.KindDate, v.Kind, s)
		assert.Equal(t, s, v.Text())
	}
	assert.Equal(t, schema.KindString, schema.Cast("01/31/2024", schema.ISODate).Kind)
	assert.Equal(t, schema.KindString, schema.Cast("2024-13-45", schema.CommonDate).Kind)
}

func TestInferType(t *testing.T) {
	t.Run("empty column is unknown", func(t *testing.T) {
		assert.Equal(t, schema.TypeUnknown, schema.InferType([]schema.Value{schema.Null(), schema.Null()}, schema.ISODate))
	})

	t.Run("agreeing numbers", func(t *testing.T) {
		vals := []schema.Value{schema.Number(1), schema.Null(), schema.Number(2.5)}
		assert.Equal(t, schema.TypeNumber, schema.InferType(vals, schema.ISODate))
	})

	t.Run("iso strings are dates", func(t *testing.T) {
		vals := []schema.Value{schema.String("2024-01-01"), schema.String("2024-02-01T10:00:00Z")}
		assert.Equal(t, schema.TypeDate, schema.InferType(vals, schema.ISODate))
	})

	t.Run("objects and arrays fall back to json", func(t *testing.T) {
		vals := []schema.Value{
			schema.JSON(map[string]any{"a": 1}),
			schema.JSON([]any{1, 2}),
			schema.String(`{"b":2}`),
		}
		assert.Equal(t, schema.TypeJSON, schema.InferType(vals, schema.ISODate))
	})

	t.Run("mixed scalars fall back to string", func(t *testing.T) {
		vals := []schema.Value{schema.Number(1), schema.Bool(true)}
		assert.Equal(t, schema.TypeString, schema.InferType(vals, schema.ISODate))
	})
}

func TestInferType_OrderIndependent(t *testing.T) {
	faker := gofakeit.New(42)
	for round := 0; round < 20; round++ {
		vals := make([]schema.Value, 0, 40)
		for i := 0; i < 40; i++ {
			switch faker.Number(0, 3) {
			case 0:
				vals = append(vals, schema.Number(faker.Float64()))
			case 1:
				vals = append(vals, schema.Null())
			case 2:
				vals = append(vals, schema.JSON(map[string]any{"k": faker.Word()}))
			default:
				vals = append(vals, schema.JSON([]any{faker.Word()}))
			}
		}

		want := schema.InferType(vals, schema.ISODate)
		for shuffle := 0; shuffle < 5; shuffle++ {
			faker.ShuffleAnySlice(vals)
			assert.Equal(t, want, schema.InferType(vals, schema.ISODate))
		}
	}
}

func TestInferColumns(t *testing.T) {
	records := []schema.Record{
		{"name": schema.String("Ada"), "age": schema.Number(30)},
		{"name": schema.String("Grace"), "age": schema.Null()},
		{"name": schema.String("Linus")},
	}

	cols := schema.InferColumns(records, []string{"name", "age"}, schema.CommonDate)

	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, schema.TypeString, cols[0].MappedType)
	assert.False(t, cols[0].Nullable)
	assert.Len(t, cols[0].SampleValues, 3)

	assert.Equal(t, schema.TypeNumber, cols[1].MappedType)
	assert.True(t, cols[1].Nullable)
	assert.Len(t, cols[1].SampleValues, 1)
}

func TestColumnInfo_AddSampleCapsAndSkipsNull(t *testing.T) {
	var col schema.ColumnInfo
	col.AddSample(schema.Null())
	for i := 0; i < 10; i++ {
		col.AddSample(schema.Number(float64(i)))
	}
	assert.Len(t, col.SampleValues, schema.MaxSampleValues)
	for _, v := range col.SampleValues {
		assert.False(t, v.IsNull())
	}
}
