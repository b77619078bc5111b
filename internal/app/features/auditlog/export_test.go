package auditlog

import (
	"net/http"

	"github.com/dalemusser/studentportal/internal/app/store/audit"
)

// ParseFilter exposes query parsing to tests.
func ParseFilter(r *http.Request) (audit.QueryFilter, int) { return parseFilter(r) }

// Pages reports the pagination computed for page of total events.
func Pages(page int, total int64) (totalPages, prev, next int, hasPrev, hasNext bool) {
	var d listData
	paginate(&d, page, total)
	return d.TotalPages, d.PrevPage, d.NextPage, d.HasPrev, d.HasNext
}
