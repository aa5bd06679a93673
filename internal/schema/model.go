package schema

// MappedType is the normalized type every native type is reduced to.
type MappedType string

const (
	TypeString  MappedType = "string"
	TypeNumber  MappedType = "number"
	TypeBoolean MappedType = "boolean"
	TypeDate    MappedType = "date"
	TypeJSON    MappedType = "json"
	TypeUnknown MappedType = "unknown"
)

// TableKind describes what a TableInfo stands for.
type TableKind string

const (
	KindTable      TableKind = "table"
	KindView       TableKind = "view"
	KindCollection TableKind = "collection"
	KindFile       TableKind = "file"
)

// MaxSampleValues caps ColumnInfo.SampleValues.
const MaxSampleValues = 5

type ColumnInfo struct {
	Name         string     `json:"name" yaml:"name"`
	NativeType   string     `json:"nativeType" yaml:"nativeType"`
	MappedType   MappedType `json:"mappedType" yaml:"mappedType"`
	Nullable     bool       `json:"nullable" yaml:"nullable"`
	IsPrimaryKey bool       `json:"isPrimaryKey,omitempty" yaml:"isPrimaryKey,omitempty"`
	MaxLength    *int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Precision    *int       `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale        *int       `json:"scale,omitempty" yaml:"scale,omitempty"`
	SampleValues []Value    `json:"sampleValues,omitempty" yaml:"-"`
}

// AddSample appends v to the column samples unless it is null or the cap is reached.
func (c *ColumnInfo) AddSample(v Value) {
	if v.IsNull() || len(c.SampleValues) >= MaxSampleValues {
		return
	}
	c.SampleValues = append(c.SampleValues, v)
}

type ForeignKey struct {
	Column    string `json:"column" yaml:"column"`
	RefTable  string `json:"refTable" yaml:"refTable"`
	RefColumn string `json:"refColumn" yaml:"refColumn"`
}

type TableInfo struct {
	Name              string       `json:"name" yaml:"name"`
	Schema            string       `json:"schema,omitempty" yaml:"schema,omitempty"`
	Kind              TableKind    `json:"kind" yaml:"kind"`
	EstimatedRowCount *int64       `json:"estimatedRowCount,omitempty" yaml:"estimatedRowCount,omitempty"`
	Columns           []ColumnInfo `json:"columns,omitempty" yaml:"columns,omitempty"`
	ForeignKeys       []ForeignKey `json:"foreignKeys,omitempty" yaml:"foreignKeys,omitempty"`
	Dependencies      []string     `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}
