package api

import (
	"io"
	"net/url"
	"strconv"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	hwaerrors "github.com/brilliance/hwachat/internal/errors"
	"github.com/brilliance/hwachat/internal/models"
)

// PagingStrategy selects how successive FetchPage calls walk the
// listing. The service supports both: asking for the next page at a
// fixed limit, or asking for page one with a growing limit. Growing the
// limit re-fetches earlier entries, which the dedupe pass absorbs.
type PagingStrategy int

const (
	PageIncrement PagingStrategy = iota
	LimitIncrement
)

// GroupList pages through the conversation-group listing, accumulating
// a deduplicated slice in first-seen order.
type GroupList struct {
	client   *Client
	strategy PagingStrategy

	mu        sync.Mutex
	baseLimit int
	page      int
	limit     int

	groups     []models.GroupSummary
	seen       map[string]bool
	totalPages int // from pagination.totalPages, 0 when absent
	totalItems int // from pagination.total, -1 when absent
	fetched    bool
}

// GroupListOption configures a GroupList.
type GroupListOption func(*GroupList)

// WithPagingStrategy selects the paging strategy. Default is
// PageIncrement.
func WithPagingStrategy(s PagingStrategy) GroupListOption {
	return func(g *GroupList) {
		g.strategy = s
	}
}

// NewGroupList creates a listing that fetches limit entries per call.
func NewGroupList(client *Client, limit int, opts ...GroupListOption) *GroupList {
	if limit <= 0 {
		limit = 10
	}
	g := &GroupList{
		client:     client,
		baseLimit:  limit,
		page:       1,
		limit:      limit,
		seen:       make(map[string]bool),
		totalItems: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchPage fetches the next page and merges it into the accumulated
// listing. It returns only the entries added by this call.
func (g *GroupList) FetchPage() ([]models.GroupSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	query := url.Values{}
	query.Set("page", strconv.Itoa(g.page))
	query.Set("limit", strconv.Itoa(g.limit))

	resp, err := g.client.do(fhttp.MethodGet, models.PathGroups, query, "", nil)
	if err != nil {
		return nil, hwaerrors.NewAPIError(0, models.PathGroups, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, hwaerrors.NewAPIError(resp.StatusCode, models.PathGroups, err.Error())
	}

	if !twoXX(resp.StatusCode) {
		return nil, hwaerrors.NewAPIError(resp.StatusCode, models.PathGroups, string(body))
	}

	parsed := gjson.ParseBytes(body)
	entries := parsed.Get("groups")
	if !entries.IsArray() {
		// Wrapped payload variant.
		entries = parsed.Get("data.groups")
	}
	if !entries.IsArray() {
		return nil, hwaerrors.ErrInvalidResponse
	}

	var added []models.GroupSummary
	entries.ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("id").String()
		if id == "" || g.seen[id] {
			return true
		}
		g.seen[id] = true
		summary := models.GroupSummary{ID: id, Title: entry.Get("title").String()}
		g.groups = append(g.groups, summary)
		added = append(added, summary)
		return true
	})

	g.readPagination(parsed)
	g.fetched = true
	g.advance()

	return added, nil
}

// readPagination records the server's progress hint. Newer servers
// report pagination.totalPages; older ones report pagination.total,
// which counts items, not pages.
func (g *GroupList) readPagination(parsed gjson.Result) {
	g.totalPages = 0
	g.totalItems = -1
	if v := parsed.Get("pagination.totalPages"); v.Exists() {
		g.totalPages = int(v.Int())
		return
	}
	if v := parsed.Get("pagination.total"); v.Exists() {
		g.totalItems = int(v.Int())
		return
	}
	g.totalPages = 1
}

// advance moves the cursor per strategy.
func (g *GroupList) advance() {
	if g.strategy == LimitIncrement {
		g.limit += g.baseLimit
		return
	}
	g.page++
}

// Groups returns the accumulated listing in first-seen order.
func (g *GroupList) Groups() []models.GroupSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.GroupSummary, len(g.groups))
	copy(out, g.groups)
	return out
}

// HasMore reports whether another FetchPage call can add entries.
// Before the first fetch it is optimistically true.
func (g *GroupList) HasMore() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.fetched {
		return true
	}
	// An item total compares against what has been accumulated,
	// regardless of strategy.
	if g.totalItems >= 0 {
		return len(g.groups) < g.totalItems
	}
	if g.strategy == LimitIncrement {
		return g.totalPages > 1
	}
	return g.page <= g.totalPages
}

// Reset discards accumulated state so the next fetch starts over.
// Used after the server mints a new conversation group.
func (g *GroupList) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.page = 1
	g.limit = g.baseLimit
	g.groups = nil
	g.seen = make(map[string]bool)
	g.totalPages = 0
	g.totalItems = -1
	g.fetched = false
}
