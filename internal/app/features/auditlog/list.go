// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// parseFilter reads the list filters and the 1-based page from the query.
// Unknown categories and malformed dates are ignored.
func parseFilter(r *http.Request) (audit.QueryFilter, int) {
	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))

	if eventTypesForCategory(category) == nil {
		category = ""
	}
	valid := false
	for _, et := range eventTypesForCategory(category) {
		if et == eventType {
			valid = true
			break
		}
	}
	if !valid {
		eventType = ""
	}

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if t, err := time.Parse(dateLayout, strings.TrimSpace(query.Get(r, "start_date"))); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.Parse(dateLayout, strings.TrimSpace(query.Get(r, "end_date"))); err == nil {
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}
	return filter, page
}

// ServeList handles GET /audit - displays the audit log list with filtering.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, page := parseFilter(r)

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Activity", viewdata.NavAudit),
		Category:   filter.Category,
		EventType:  filter.EventType,
		StartDate:  query.Get(r, "start_date"),
		EndDate:    query.Get(r, "end_date"),
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(filter.Category),
		Page:       1,
		TotalPages: 1,
	}

	if h.Events == nil {
		data.Disabled = true
		templates.Render(w, r, "audit_list", data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		h.ErrLog.LogServerError(w, r, "database error", err, "The activity log could not be loaded.", "/welcome")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		h.ErrLog.LogServerError(w, r, "database error", err, "The activity log could not be loaded.", "/welcome")
		return
	}

	data.Items = toItems(events)
	data.Total = total
	paginate(&data, page, total)

	templates.Render(w, r, "audit_list", data)
}

func toItems(events []audit.Event) []listItem {
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		actor := e.ActorEmail
		if actor == "" {
			actor = e.ActorUID
		}
		items = append(items, listItem{
			Timestamp: e.Timestamp,
			Category:  e.Category,
			EventType: e.EventType,
			Actor:     actor,
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		})
	}
	return items
}

func paginate(data *listData, page int, total int64) {
	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	prevPage := page - 1
	if prevPage < 1 {
		prevPage = 1
	}
	nextPage := page + 1
	if nextPage > totalPages {
		nextPage = totalPages
	}

	data.Page = page
	data.TotalPages = totalPages
	data.HasPrev = page > 1
	data.HasNext = page < totalPages
	data.PrevPage = prevPage
	data.NextPage = nextPage
}
