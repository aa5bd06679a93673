package file

import (
	"bytes"
	"fmt"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

// JSON reads a JSON document. The records are the array at RootPath, or the first
// likely array when no path is configured.
type JSON struct {
	source
	cfg connector.JSONConfig
}

var _ connector.Connector = (*JSON)(nil)

func NewJSON(cfg connector.JSONConfig) *JSON {
	j := &JSON{
		source: newSource(connector.KindJSON, cfg.FilePath, cfg.Encoding),
		cfg:    cfg,
	}
	j.parse = j.parseJSON
	return j
}

func (j *JSON) parseJSON(text []byte) (*dataset, error) {
	doc, err := schema.DecodeJSON(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	items, path, err := findRecords(connector.KindJSON, doc, j.cfg.RootPath, 0, false)
	if err != nil {
		return nil, err
	}

	c := collect(items, nil)
	return &dataset{
		records:  c.Records(),
		columns:  schema.InferColumns(c.Records(), c.Order(), schema.ISODate),
		rootPath: path,
	}, nil
}
