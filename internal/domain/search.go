package domain

import (
	"encoding/json"
	"time"
)

const (
	UnknownCategory = "Unknown"
	MagnetCategory  = "Direct Magnet"
	MagnetSource    = "magnet-link"
)

// ResourceDescriptor is the canonical, adapter-neutral search result.
// Nil numeric fields mean "unknown"; zero means a known zero.
type ResourceDescriptor struct {
	Title     string     `json:"title"`
	Magnet    string     `json:"magnet,omitempty"`
	InfoHash  string     `json:"infoHash,omitempty"`
	Size      *int64     `json:"size"`
	SizeLabel string     `json:"sizeLabel,omitempty"`
	Seeders   *int       `json:"seeders"`
	Leechers  *int       `json:"leechers"`
	Uploaded  *time.Time `json:"uploaded"`
	Category  string     `json:"category"`
	Trackers  []string   `json:"trackers"`
	Source    string     `json:"source"`
}

// MarshalJSON writes an unknown info hash or size label as null.
func (d ResourceDescriptor) MarshalJSON() ([]byte, error) {
	type plain ResourceDescriptor
	return json.Marshal(struct {
		plain
		InfoHash  *string `json:"infoHash"`
		SizeLabel *string `json:"sizeLabel"`
	}{
		plain:     plain(d),
		InfoHash:  nullable(d.InfoHash),
		SizeLabel: nullable(d.SizeLabel),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type SearchMode string

const (
	ModeSearch SearchMode = "search"
	ModeMagnet SearchMode = "magnet"
)

type SearchRequest struct {
	Query     string
	AdapterID string
	Page      int
	PageSize  int
}

type PageInfo struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	HasPrevPage bool `json:"hasPrevPage"`
	HasNextPage bool `json:"hasNextPage"`
	// TotalPages is nil when the producing adapter pages remotely and
	// cannot report a total.
	TotalPages *int `json:"totalPages,omitempty"`
}

type PageView struct {
	PageInfo
	Items []ResourceDescriptor `json:"items"`
}

// SearchOutcome describes what happened while answering one request.
// Items holds the current page only; ResultCount counts every item the
// producing adapter returned.
type SearchOutcome struct {
	Mode               SearchMode
	Query              string
	Items              []ResourceDescriptor
	AdapterUsed        string
	AdapterName        string
	AdapterDescription string
	AdapterEndpoint    string
	RequestedAdapter   string
	FallbackUsed       bool
	FallbackAdapterID  string
	FallbackAdapter    string
	PrimaryError       string
	FallbackError      string
	ResultCount        int
	ElapsedMS          int64
	PageInfo
}

type SearchMeta struct {
	Mode                 SearchMode `json:"mode"`
	Adapter              string     `json:"adapter,omitempty"`
	AdapterName          string     `json:"adapterName,omitempty"`
	AdapterDescription   string     `json:"adapterDescription,omitempty"`
	AdapterEndpoint      string     `json:"adapterEndpoint,omitempty"`
	RequestedAdapter     string     `json:"requestedAdapter,omitempty"`
	ResultCount          int        `json:"resultCount"`
	AdapterError         string     `json:"adapterError,omitempty"`
	FallbackUsed         bool       `json:"fallbackUsed"`
	FallbackAdapter      string     `json:"fallbackAdapter,omitempty"`
	FallbackAdapterName  string     `json:"fallbackAdapterName,omitempty"`
	FallbackAdapterError string     `json:"fallbackAdapterError,omitempty"`
	ElapsedMS            int64      `json:"elapsedMs"`
	PageInfo
}

type SearchResponse struct {
	Query   string               `json:"query"`
	Results []ResourceDescriptor `json:"results"`
	Meta    SearchMeta           `json:"meta"`
}

func (o SearchOutcome) Meta() SearchMeta {
	return SearchMeta{
		Mode:                 o.Mode,
		Adapter:              o.AdapterUsed,
		AdapterName:          o.AdapterName,
		AdapterDescription:   o.AdapterDescription,
		AdapterEndpoint:      o.AdapterEndpoint,
		RequestedAdapter:     o.RequestedAdapter,
		ResultCount:          o.ResultCount,
		AdapterError:         o.PrimaryError,
		FallbackUsed:         o.FallbackUsed,
		FallbackAdapter:      o.FallbackAdapterID,
		FallbackAdapterName:  o.FallbackAdapter,
		FallbackAdapterError: o.FallbackError,
		ElapsedMS:            o.ElapsedMS,
		PageInfo:             o.PageInfo,
	}
}

func (o SearchOutcome) Response() SearchResponse {
	results := o.Items
	if results == nil {
		results = []ResourceDescriptor{}
	}
	return SearchResponse{
		Query:   o.Query,
		Results: results,
		Meta:    o.Meta(),
	}
}

type HistoryEntry struct {
	ID        string               `json:"id"`
	Query     string               `json:"query"`
	CreatedAt time.Time            `json:"createdAt"`
	Mode      SearchMode           `json:"mode"`
	Meta      SearchMeta           `json:"meta"`
	Results   []ResourceDescriptor `json:"results"`
}
