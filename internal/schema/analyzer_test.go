package schema_test

import (
	"testing"

	"dataport/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(tables []schema.TableInfo) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

func TestSortByDependencies_Chain(t *testing.T) {
	tables := []schema.TableInfo{
		{Name: "order_items", Dependencies: []string{"orders"}},
		{Name: "orders", Dependencies: []string{"customers"}},
		{Name: "customers"},
	}

	sorted := schema.SortByDependencies(tables)

	assert.Equal(t, []string{"customers", "orders", "order_items"}, names(sorted))
}

func TestSortByDependencies_Cycle(t *testing.T) {
	// A -> B -> C -> D -> E -> A, F -> E, G standalone
	tables := []schema.TableInfo{
		{Name: "A", Dependencies: []string{"B"}},
		{Name: "B", Dependencies: []string{"C"}},
		{Name: "C", Dependencies: []string{"D"}},
		{Name: "D", Dependencies: []string{"E"}},
		{Name: "E", Dependencies: []string{"A"}},
		{Name: "F", Dependencies: []string{"E"}},
		{Name: "G"},
	}

	sorted := schema.SortByDependencies(tables)

	require.Len(t, sorted, len(tables))
	assert.Equal(t, "G", sorted[0].Name)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F", "G"}, names(sorted))

	pos := make(map[string]int)
	for i, tbl := range sorted {
		pos[tbl.Name] = i
	}
	assert.Less(t, pos["E"], pos["F"], "F references E")
}

func TestSortByDependencies_MutualPairBrokenByName(t *testing.T) {
	tables := []schema.TableInfo{
		{Name: "staff", Dependencies: []string{"store"}},
		{Name: "store", Dependencies: []string{"staff"}},
	}

	sorted := schema.SortByDependencies(tables)

	assert.Equal(t, []string{"staff", "store"}, names(sorted))
}

func TestLinkDependencies(t *testing.T) {
	tables := []schema.TableInfo{
		{Name: "ORDERS", ForeignKeys: []schema.ForeignKey{
			{Column: "CUSTOMER_ID", RefTable: "customers", RefColumn: "ID"},
			{Column: "BILLING_ID", RefTable: "CUSTOMERS", RefColumn: "ID"},
			{Column: "REGION_ID", RefTable: "REGIONS", RefColumn: "ID"},
			{Column: "PARENT_ID", RefTable: "ORDERS", RefColumn: "ID"},
		}},
		{Name: "CUSTOMERS"},
	}

	schema.LinkDependencies(tables)

	assert.Equal(t, []string{"CUSTOMERS"}, tables[0].Dependencies)
	assert.Empty(t, tables[1].Dependencies)
}
