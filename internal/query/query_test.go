package query_test

import (
	"testing"

	"dataport/internal/query"
	"dataport/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leads() []schema.Record {
	return []schema.Record{
		{"name": schema.String("Ada"), "status": schema.String("LEAD"), "score": schema.Number(42), "owner": schema.JSON(map[string]any{"team": "north"})},
		{"name": schema.String("Grace"), "status": schema.String("LEAD"), "score": schema.Number(7)},
		{"name": schema.String("Linus"), "status": schema.String("CUSTOMER"), "score": schema.Number(99)},
		{"name": schema.String("Barbara"), "status": schema.String("LEAD"), "score": schema.Null()},
		{"name": schema.String("Alan"), "status": schema.String("lost"), "score": schema.Number(15), "owner.team": schema.String("south")},
	}
}

func namesOf(rows []schema.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["name"].Text()
	}
	return out
}

func TestParseWhere(t *testing.T) {
	f := query.ParseWhere(`status = 'LEAD' AND score > 10 and name LIKE "A%" AND tag IN ('a', "b,c", d)`)

	require.Len(t, f.Conditions, 4)
	assert.Empty(t, f.Skipped)
	assert.Equal(t, query.Condition{Field: "status", Op: query.OpEq, Value: "LEAD"}, f.Conditions[0])
	assert.Equal(t, query.OpGt, f.Conditions[1].Op)
	assert.Equal(t, "10", f.Conditions[1].Value)
	assert.Equal(t, query.OpLike, f.Conditions[2].Op)
	assert.Equal(t, "A%", f.Conditions[2].Value)
	assert.Equal(t, []string{"a", "b,c", "d"}, f.Conditions[3].Values)
}

func TestParseWhere_AndInsideQuotes(t *testing.T) {
	f := query.ParseWhere(`company = 'Smith AND Sons' AND city <> 'Oslo'`)
	require.Len(t, f.Conditions, 2)
	assert.Equal(t, "Smith AND Sons", f.Conditions[0].Value)
	assert.Equal(t, query.OpNe, f.Conditions[1].Op)
}

func TestParseWhere_SkipsBrokenFragments(t *testing.T) {
	f := query.ParseWhere(`status 'LEAD' AND score > 10 AND = 4 AND name IN 'x' AND age >`)
	require.Len(t, f.Conditions, 1)
	assert.Equal(t, "score", f.Conditions[0].Field)
	assert.Equal(t, []string{`status 'LEAD'`, `= 4`, `name IN 'x'`, `age >`}, f.Skipped)
}

func TestApply_WhereBothClauses(t *testing.T) {
	out := query.Apply(leads(), query.Options{Where: "status = 'LEAD' AND score > 10"})
	assert.Equal(t, []string{"Ada"}, namesOf(out.Rows))
	assert.Equal(t, 1, out.Total)
}

func TestApply_IgnoresUnparsableFragment(t *testing.T) {
	out := query.Apply(leads(), query.Options{Where: "status = 'LEAD' AND score"})
	assert.Equal(t, []string{"Ada", "Grace", "Barbara"}, namesOf(out.Rows))
	assert.Equal(t, []string{"score"}, out.Skipped)
}

func TestApply_Operators(t *testing.T) {
	cases := map[string][]string{
		"score >= 15":                      {"Ada", "Linus", "Alan"},
		"score <= 15":                      {"Grace", "Alan"},
		"score < 15":                       {"Grace"},
		"score != 42":                      {"Grace", "Linus", "Alan"},
		"score = null":                     {"Barbara"},
		"score != NULL":                    {"Ada", "Grace", "Linus", "Alan"},
		"name LIKE 'a%'":                   {"Ada", "Alan"},
		"name like '_race'":                {"Grace"},
		"name LIKE '%a%a%'":                {"Ada", "Barbara", "Alan"},
		"status IN ('CUSTOMER', 'lost')":   {"Linus", "Alan"},
		"score IN (7, 99)":                 {"Grace", "Linus"},
		"owner.team = 'north'":             {"Ada"},
		"owner.team = south":               {"Alan"},
		"name = 'Ada' AND status = 'LEAD'": {"Ada"},
	}
	for where, want := range cases {
		out := query.Apply(leads(), query.Options{Where: where})
		assert.Equal(t, want, namesOf(out.Rows), where)
	}
}

func TestApply_LikeEscapesRegexMeta(t *testing.T) {
	rows := []schema.Record{
		{"name": schema.String("a.b")},
		{"name": schema.String("axb")},
	}
	out := query.Apply(rows, query.Options{Where: "name LIKE 'a.b'"})
	assert.Equal(t, []string{"a.b"}, namesOf(out.Rows))
}

func TestApply_OrderNullsLast(t *testing.T) {
	asc := query.Apply(leads(), query.Options{OrderBy: "score"})
	assert.Equal(t, []string{"Grace", "Alan", "Ada", "Linus", "Barbara"}, namesOf(asc.Rows))

	desc := query.Apply(leads(), query.Options{OrderBy: "score DESC, name"})
	assert.Equal(t, []string{"Linus", "Ada", "Alan", "Grace", "Barbara"}, namesOf(desc.Rows))

	byName := query.Apply(leads(), query.Options{OrderBy: "name asc"})
	assert.Equal(t, []string{"Ada", "Alan", "Barbara", "Grace", "Linus"}, namesOf(byName.Rows))
}

func TestApply_PaginateAndProject(t *testing.T) {
	out := query.Apply(leads(), query.Options{OrderBy: "name", Offset: 1, Limit: 2, Columns: []string{"name", "missing"}})

	assert.Equal(t, 5, out.Total)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"Alan", "Barbara"}, namesOf(out.Rows))
	assert.Len(t, out.Rows[0], 2)
	assert.True(t, out.Rows[0]["missing"].IsNull())

	past := query.Apply(leads(), query.Options{Offset: 10})
	assert.Empty(t, past.Rows)
	assert.Equal(t, 5, past.Total)
}

func TestApply_DoesNotReorderInput(t *testing.T) {
	in := leads()
	query.Apply(in, query.Options{OrderBy: "name DESC"})
	assert.Equal(t, "Ada", in[0]["name"].Text())
}

func TestApply_NeverExceedsLimit(t *testing.T) {
	faker := gofakeit.New(3)
	rows := make([]schema.Record, 300)
	for i := range rows {
		rows[i] = schema.Record{"n": schema.Number(float64(faker.Number(0, 1000)))}
	}
	for i := 0; i < 100; i++ {
		limit := faker.Number(0, 120)
		offset := faker.Number(0, 320)
		out := query.Apply(rows, query.Options{Where: "n > 200", Limit: limit, Offset: offset})
		if limit > 0 {
			assert.LessOrEqual(t, len(out.Rows), limit)
		}
		for _, r := range out.Rows {
			assert.Greater(t, r["n"].Num, 200.0)
		}
	}
}
