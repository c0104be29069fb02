package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chaintex/trade-processor/pkg/store"
)

const (
	defaultPerPage = 25
	maxPerPage     = 100

	dateLayout = "2006-01-02"
)

// fieldError mirrors the validation error entries of the envelope:
// {"errors":[{"param":...,"msg":...}]}.
type fieldError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

type pageParams struct {
	PerPage int64
	Page    int64
}

func (p pageParams) offset() int64 {
	if p.Page > 1 {
		return (p.Page - 1) * p.PerPage
	}

	return 0
}

// parsePageParams validates limit and page. Both are optional; invalid or
// out-of-range values are rejected rather than clamped.
func parsePageParams(r *http.Request) (pageParams, []fieldError) {
	params := pageParams{PerPage: defaultPerPage, Page: 1}

	var errs []fieldError

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > maxPerPage {
			errs = append(errs, fieldError{Param: "limit", Msg: "Limit is less than 101 items per page"})
		} else {
			params.PerPage = limit
		}
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || page < 1 || page > maxPages {
			errs = append(errs, fieldError{Param: "page", Msg: "Require page is number"})
		} else {
			params.Page = page
		}
	}

	return params, errs
}

// parseDate parses an optional yyyy-mm-dd query parameter.
func parseDate(r *http.Request, name string) (time.Time, bool, *fieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, &fieldError{Param: name, Msg: "require " + name + " is yyyy-mm-dd"}
	}

	return t.UTC(), true, nil
}

func parseMinValue(r *http.Request) (float64, *fieldError) {
	raw := r.URL.Query().Get("minValue")
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &fieldError{Param: "minValue", Msg: "Require minValue is number"}
	}

	return v, nil
}

func parseSort(r *http.Request) (string, *fieldError) {
	raw := r.URL.Query().Get("sort")

	switch raw {
	case "":
		return store.SortByVolume, nil
	case store.SortByVolume, store.SortByTxs:
		return raw, nil
	default:
		return "", &fieldError{Param: "sort", Msg: "type = volume|txs"}
	}
}
