package rest

import (
	"context"
	"net/url"
	"strconv"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

const defaultPageSize = 100

// page is one decoded response, trimmed to the records at or after the walk's start.
type page struct {
	items []any
	// total is the record count reported by the API, when a total path is configured.
	total *int64
	// cursor is the token for the following page in cursor mode.
	cursor    string
	exhausted bool
}

// pager requests consecutive pages for one pagination strategy.
type pager struct {
	cfg connector.PaginationConfig
}

func newPager(cfg connector.PaginationConfig) pager {
	if cfg.Type == "" {
		cfg.Type = connector.PaginationNone
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.OffsetParam == "" {
		cfg.OffsetParam = "offset"
	}
	if cfg.LimitParam == "" {
		cfg.LimitParam = "limit"
	}
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.CursorParam == "" {
		cfg.CursorParam = "cursor"
	}
	if cfg.NextCursorPath == "" {
		cfg.NextCursorPath = "nextCursor"
	}
	if cfg.StartPage == 0 {
		cfg.StartPage = 1
	}
	return pager{cfg: cfg}
}

// fetchFunc performs one request with the given pagination params and decodes the body.
type fetchFunc func(ctx context.Context, params url.Values) (items []any, doc any, err error)

// walk requests pages beginning at record position start and hands each to visit until
// visit returns false or the source runs dry. Offset and page modes jump straight to start;
// cursor mode has to read from the beginning and discard what comes before it.
func (p pager) walk(ctx context.Context, start int, fetch fetchFunc, totalOf func(doc any) *int64, visit func(*page) bool) error {
	size := p.cfg.PageSize

	switch p.cfg.Type {
	case connector.PaginationOffset:
		pos := start
		for {
			items, doc, err := fetch(ctx, url.Values{
				p.cfg.OffsetParam: {strconv.Itoa(pos)},
				p.cfg.LimitParam:  {strconv.Itoa(size)},
			})
			if err != nil {
				return err
			}
			pg := &page{items: items, total: totalOf(doc), exhausted: len(items) < size}
			if !visit(pg) || pg.exhausted {
				return nil
			}
			pos += len(items)
		}

	case connector.PaginationPage:
		n := p.cfg.StartPage + start/size
		skip := start % size
		for {
			items, doc, err := fetch(ctx, url.Values{
				p.cfg.PageParam:  {strconv.Itoa(n)},
				p.cfg.LimitParam: {strconv.Itoa(size)},
			})
			if err != nil {
				return err
			}
			pg := &page{items: items[min(skip, len(items)):], total: totalOf(doc), exhausted: len(items) < size}
			skip = 0
			if !visit(pg) || pg.exhausted {
				return nil
			}
			n++
		}

	case connector.PaginationCursor:
		cursor := ""
		skip := start
		for {
			params := url.Values{p.cfg.LimitParam: {strconv.Itoa(size)}}
			if cursor != "" {
				params.Set(p.cfg.CursorParam, cursor)
			}
			items, doc, err := fetch(ctx, params)
			if err != nil {
				return err
			}
			next := schema.FromNative(resolve(doc, p.cfg.NextCursorPath)).Text()
			dropped := min(skip, len(items))
			skip -= dropped
			pg := &page{
				items:     items[dropped:],
				total:     totalOf(doc),
				cursor:    next,
				exhausted: next == "" || len(items) == 0,
			}
			if pg.exhausted || len(pg.items) > 0 {
				if !visit(pg) || pg.exhausted {
					return nil
				}
			}
			cursor = next
		}

	default:
		items, doc, err := fetch(ctx, nil)
		if err != nil {
			return err
		}
		total := totalOf(doc)
		if total == nil {
			n := int64(len(items))
			total = &n
		}
		visit(&page{items: items[min(start, len(items)):], total: total, exhausted: true})
		return nil
	}
}

func resolve(doc any, path string) any {
	v, _ := schema.Resolve(doc, path)
	return v
}
