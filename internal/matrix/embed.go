package matrix

import (
	"errors"
	"net/url"
	"strings"

	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/entity"
)

// ErrEmbedMisconfigured is reported in place of the report iframe when no
// real embed URL was configured.
var ErrEmbedMisconfigured = errors.New("embed URL is not configured")

const (
	paramTypeFilter     = "type_filter"
	paramCategoryFilter = "category_filter"
)

// BuildEmbedURL appends type_filter and category_filter, in that order, for
// every facet the user narrowed. With nothing narrowed base is returned as is.
func BuildEmbedURL(base string, sel entity.FilterSelection) string {
	var params []string
	if sel.Type != "" && sel.Type != entity.FilterAll {
		params = append(params, paramTypeFilter+"="+escapeComponent(sel.Type))
	}
	if sel.Category != "" && sel.Category != entity.FilterAll {
		params = append(params, paramCategoryFilter+"="+escapeComponent(sel.Category))
	}
	if len(params) == 0 {
		return base
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(params, "&")
}

// EmbedConfigured reports whether base points at a real report.
func EmbedConfigured(base string) bool {
	return config.ResolveEmbedTarget(base).Configured
}

// escapeComponent percent-encodes v for use as a query value. Spaces become
// %20 rather than '+'.
func escapeComponent(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
