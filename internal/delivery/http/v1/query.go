package v1

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/tracker/internal/query"
)

// abortWithQueryError answers a malformed query parameter with 400.
func abortWithQueryError(c *gin.Context, err error) {
	apiErr := newBadRequestError(err.Error())
	var qErr *query.Error
	if errors.As(err, &qErr) {
		apiErr.Field = qErr.Field
	}
	abort(c, apiErr)
}

func parseSortAndPage(c *gin.Context) (query.Sort, query.Page, error) {
	sort, err := query.ParseSort(c.Query("sortBy"), c.Query("sortOrder"))
	if err != nil {
		return query.Sort{}, query.Page{}, err
	}
	page, err := query.ParsePage(c.Query("page"), c.Query("limit"))
	if err != nil {
		return query.Sort{}, query.Page{}, err
	}
	return sort, page, nil
}

// parseDay accepts a calendar date or a full RFC 3339 timestamp. A date
// is the UTC day starting at midnight.
func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &query.Error{Field: "dueDate", Reason: "must be a date like 2006-01-02"}
	}
	return t, nil
}

type paginationResponse struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Count      int `json:"count"`
	TotalCount int `json:"totalCount"`
}

func newPaginationResponse(p query.Pagination) paginationResponse {
	return paginationResponse{
		Current:    p.Current,
		Total:      p.TotalPages,
		Count:      p.Count,
		TotalCount: p.TotalCount,
	}
}
