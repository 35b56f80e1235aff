package pagination

import (
	"strconv"
	"strings"

	"github.com/lovedemo/seedManage/internal/domain"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Paginate slices a fully materialized result list. Pages start at 1; any
// smaller request is treated as page 1, and a non-positive pageSize falls
// back to DefaultPageSize.
func Paginate(items []domain.ResourceDescriptor, requestedPage, pageSize int) domain.PageView {
	page := ClampPage(requestedPage)
	size := ClampPageSize(pageSize)

	total := len(items)
	totalPages := (total + size - 1) / size

	// Compare in page units so a huge page number cannot overflow the offset.
	start := total
	if page-1 < totalPages {
		start = (page - 1) * size
	}
	end := total
	if total-start > size {
		end = start + size
	}

	slice := make([]domain.ResourceDescriptor, end-start)
	copy(slice, items[start:end])

	return domain.PageView{
		PageInfo: domain.PageInfo{
			CurrentPage: page,
			PageSize:    size,
			HasPrevPage: page > 1,
			HasNextPage: end < total,
			TotalPages:  &totalPages,
		},
		Items: slice,
	}
}

// PassThrough wraps a page the adapter already fetched remotely. The total is
// unknown, so TotalPages stays nil and hasNext is the adapter's own signal.
// Items beyond pageSize are cut, which also proves a next page exists.
func PassThrough(items []domain.ResourceDescriptor, requestedPage, pageSize int, hasNext bool) domain.PageView {
	page := ClampPage(requestedPage)
	size := ClampPageSize(pageSize)

	if len(items) > size {
		items = items[:size]
		hasNext = true
	}
	slice := make([]domain.ResourceDescriptor, len(items))
	copy(slice, items)

	return domain.PageView{
		PageInfo: domain.PageInfo{
			CurrentPage: page,
			PageSize:    size,
			HasPrevPage: page > 1,
			HasNextPage: hasNext,
		},
		Items: slice,
	}
}

func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// ParsePage reads a page number from a query parameter. Anything that is not
// a positive integer yields 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParsePageSize reads a page size, returning 0 (use the default) when the
// input is absent or invalid.
func ParsePageSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}
	return ClampPageSize(n)
}
