package inspection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

const (
	remarkSuffix = "R"
	photoSuffix  = "P"

	// RemarkSeparator joins remark fragments in a summary.
	RemarkSeparator = " | "
	// Placeholder stands in for absent values in views and exports.
	Placeholder = "-"
)

// RemarkSummary joins the remark value and every field whose key ends in
// "R", skipping empty values. It returns Placeholder when nothing remains.
func RemarkSummary(in *domain.Inspection) string {
	if in == nil {
		return Placeholder
	}
	var parts []string
	if truthy(in.Remark) {
		parts = append(parts, Stringify(in.Remark))
	}
	for _, f := range in.Fields {
		if strings.HasSuffix(f.Key, remarkSuffix) && truthy(f.Value) {
			parts = append(parts, Stringify(f.Value))
		}
	}
	if len(parts) == 0 {
		return Placeholder
	}
	return strings.Join(parts, RemarkSeparator)
}

// ImageURLs returns the http(s) values of fields whose key ends in "P",
// in field order. The result is never nil.
func ImageURLs(in *domain.Inspection) []string {
	urls := []string{}
	if in == nil {
		return urls
	}
	for _, f := range in.Fields {
		if !strings.HasSuffix(f.Key, photoSuffix) {
			continue
		}
		if s, ok := f.Value.(string); ok && strings.HasPrefix(s, "http") {
			urls = append(urls, s)
		}
	}
	return urls
}

// DefaultMapsHost is the mapping service used for coordinate links.
const DefaultMapsHost = "www.google.com"

// MapURL links the inspection's coordinates on the mapping service at host.
// It reports false unless both coordinates are present and non-zero.
func MapURL(in *domain.Inspection, host string) (string, bool) {
	if in == nil || !truthy(in.Lat) || !truthy(in.Lng) {
		return "", false
	}
	if host == "" {
		host = DefaultMapsHost
	}
	return fmt.Sprintf("https://%s/maps?q=%s,%s", host, Stringify(in.Lat), Stringify(in.Lng)), true
}

// truthy mirrors the loose truthiness of the upstream data: null, "", 0
// and false are empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// Stringify renders a decoded JSON value as display text. Numbers use their
// shortest form, arrays join elements with ",", objects are JSON encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return formatNumber(f)
	case float64:
		return formatNumber(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func formatNumber(f float64) string {
	if f >= 1e21 || f <= -1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
