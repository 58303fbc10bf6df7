// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// normalizeNumericID parses a loosely-typed value (Zabbix sends ids as
// strings or numbers depending on version and endpoint) into an int64.
// Textual input is trimmed; empty or non-numeric input reports false.
func normalizeNumericID(v any) (int64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		return normalizeNumericID(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func normalizeJSONID(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return normalizeNumericID(v.Num)
	case gjson.String:
		return normalizeNumericID(v.Str)
	default:
		return 0, false
	}
}
