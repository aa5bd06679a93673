package file

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

// textKey holds the character data of an element that also has attributes or children.
const textKey = "_text"

// XML reads an XML document. Attributes are merged with child elements, repeated
// children become arrays and leaf text is cast like CSV cells.
type XML struct {
	source
	cfg connector.XMLConfig
}

var _ connector.Connector = (*XML)(nil)

func NewXML(cfg connector.XMLConfig) *XML {
	x := &XML{
		source: newSource(connector.KindXML, cfg.FilePath, cfg.Encoding),
		cfg:    cfg,
	}
	x.parse = x.parseXML
	return x
}

func (x *XML) parseXML(text []byte) (*dataset, error) {
	doc, err := decodeXML(text)
	if err != nil {
		return nil, err
	}

	// The root element is itself a key of doc, so one level below it is two levels down.
	items, path, err := findRecords(connector.KindXML, doc, x.cfg.RootPath, 2, true)
	if err != nil {
		return nil, err
	}
	if path == "" && len(items) == 1 && items[0] == any(doc) {
		if inner, ok := soleChild(doc); ok {
			items = []any{inner}
		}
	}

	c := collect(items, func(s string) schema.Value { return schema.Cast(s, schema.CommonDate) })
	return &dataset{
		records:  c.Records(),
		columns:  schema.InferColumns(c.Records(), c.Order(), schema.CommonDate),
		rootPath: path,
	}, nil
}

// soleChild unwraps a document whose root holds a single object.
func soleChild(doc *schema.Object) (*schema.Object, bool) {
	if doc.Len() != 1 {
		return nil, false
	}
	inner, ok := doc.Fields[doc.Keys[0]].(*schema.Object)
	return inner, ok
}

// decodeXML builds an ordered object {rootName: content} from the document.
func decodeXML(text []byte) (*schema.Object, error) {
	dec := xml.NewDecoder(bytes.NewReader(text))
	// input is already UTF-8 whatever the declaration says
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("document has no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		content, err := readElement(dec, start)
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		if err := expectEnd(dec); err != nil {
			return nil, err
		}
		doc := schema.NewObject()
		doc.Set(start.Name.Local, content)
		return doc, nil
	}
}

// expectEnd rejects anything but comments, whitespace and processing instructions after the root.
func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("decode xml: unexpected element <%s> after root", t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("decode xml: unexpected text after root")
			}
		}
	}
}

// readElement returns the element text when it is a plain leaf, otherwise an object.
func readElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	obj := schema.NewObject()
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		obj.Set(attr.Name.Local, attr.Value)
	}

	var (
		text     strings.Builder
		repeated = map[string]bool{}
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := readElement(dec, t)
			if err != nil {
				return nil, err
			}
			addChild(obj, repeated, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if obj.Len() == 0 {
				return s, nil
			}
			if s != "" {
				obj.Set(textKey, s)
			}
			return obj, nil
		}
	}
}

func addChild(obj *schema.Object, repeated map[string]bool, name string, child any) {
	existing, ok := obj.Get(name)
	if !ok {
		obj.Set(name, child)
		return
	}
	if repeated[name] {
		obj.Set(name, append(existing.([]any), child))
		return
	}
	repeated[name] = true
	obj.Set(name, []any{existing, child})
}
