package schema

// Flatten expands nested objects into dotted keys, descending at most maxDepth levels.
// Objects below that depth and all arrays are kept whole as JSON values.
func Flatten(obj *Object, maxDepth int) *Object {
	out := NewObject()
	flattenInto(out, "", obj, 0, maxDepth)
	return out
}

func flattenInto(out *Object, prefix string, obj *Object, depth, maxDepth int) {
	for _, k := range obj.Keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := obj.Fields[k].(*Object); ok && depth < maxDepth {
			flattenInto(out, key, child, depth+1, maxDepth)
			continue
		}
		out.Set(key, obj.Fields[k])
	}
}

// Collector accumulates records and remembers column order by first appearance.
type Collector struct {
	records []Record
	order   []string
	seen    map[string]struct{}
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add converts obj into a record. cast, when set, is applied to plain string leaves.
func (c *Collector) Add(obj *Object, cast func(string) Value) {
	rec := make(Record, obj.Len())
	for _, k := range obj.Keys {
		if _, ok := c.seen[k]; !ok {
			c.seen[k] = struct{}{}
			c.order = append(c.order, k)
		}
		raw := obj.Fields[k]
		if s, isString := raw.(string); isString && cast != nil {
			rec[k] = cast(s)
			continue
		}
		rec[k] = FromNative(raw)
	}
	c.records = append(c.records, rec)
}

// AddRecord appends an already typed record with its column order.
func (c *Collector) AddRecord(rec Record, keys []string) {
	for _, k := range keys {
		if _, ok := c.seen[k]; !ok {
			c.seen[k] = struct{}{}
			c.order = append(c.order, k)
		}
	}
	c.records = append(c.records, rec)
}

func (c *Collector) Records() []Record { return c.records }

func (c *Collector) Order() []string { return c.order }
