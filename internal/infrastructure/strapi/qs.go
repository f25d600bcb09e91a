package strapi

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
)

// encodeQuery flattens nested params into the bracketed query format the CMS parses:
//
//	filters[systemId][$eq]=p1
//	fields[0]=documentId
//	populate[variants][fields][0]=title
//
// Map keys are emitted in sorted order at every level.
func encodeQuery(params map[string]any) string {
	var pairs []string
	keys := sortedKeys(params)
	for _, k := range keys {
		pairs = appendPairs(pairs, k, params[k])
	}
	return strings.Join(pairs, "&")
}

func appendPairs(pairs []string, prefix string, value any) []string {
	switch v := value.(type) {
	case nil:
		return pairs
	case map[string]any:
		for _, k := range sortedKeys(v) {
			pairs = appendPairs(pairs, prefix+"["+k+"]", v[k])
		}
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pairs = appendPairs(pairs, prefix+"["+k+"]", v[k])
		}
	case []string:
		for i, item := range v {
			pairs = appendPairs(pairs, prefix+"["+strconv.Itoa(i)+"]", item)
		}
	case []any:
		for i, item := range v {
			pairs = appendPairs(pairs, prefix+"["+strconv.Itoa(i)+"]", item)
		}
	case string:
		pairs = append(pairs, url.QueryEscape(prefix)+"="+url.QueryEscape(v))
	case bool:
		pairs = append(pairs, url.QueryEscape(prefix)+"="+strconv.FormatBool(v))
	default:
		pairs = append(pairs, url.QueryEscape(prefix)+"="+url.QueryEscape(fmt.Sprint(v)))
	}
	return pairs
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// findParams converts FindOptions into the nested parameter tree
func findParams(opts cms.FindOptions) map[string]any {
	params := map[string]any{}

	if len(opts.Filters) > 0 {
		filters := map[string]any{}
		for _, c := range opts.Filters {
			field, ok := filters[c.Field].(map[string]any)
			if !ok {
				field = map[string]any{}
				filters[c.Field] = field
			}
			field[string(c.Operator)] = c.Value
		}
		params["filters"] = filters
	}
	if len(opts.Fields) > 0 {
		params["fields"] = opts.Fields
	}
	if opts.Populate != nil {
		params["populate"] = opts.Populate
	}
	if opts.Status != "" {
		params["status"] = string(opts.Status)
	}
	if opts.Locale != "" {
		params["locale"] = opts.Locale
	}
	if p := opts.Pagination; p != nil {
		page := map[string]any{}
		if p.Start > 0 {
			page["start"] = p.Start
		}
		if p.Limit > 0 {
			page["limit"] = p.Limit
		}
		if len(page) > 0 {
			params["pagination"] = page
		}
	}
	return params
}

func writeParams(opts cms.WriteOptions) map[string]any {
	params := map[string]any{}
	if opts.Status != "" {
		params["status"] = string(opts.Status)
	}
	if opts.Locale != "" {
		params["locale"] = opts.Locale
	}
	return params
}
