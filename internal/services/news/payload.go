// Package news turns heterogeneous vendor responses into uniform NewsItem
// lists and serves them through a provider that never fails.
package news

import (
	"encoding/json"
	"strings"
)

// PayloadKind identifies the shape of a vendor response.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadRecords
	PayloadFeed
	PayloadText
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadRecords:
		return "records"
	case PayloadFeed:
		return "feed"
	case PayloadText:
		return "text"
	default:
		return "unknown"
	}
}

// Payload is a vendor response after shape inspection. Only the field
// matching Kind is populated.
type Payload struct {
	Kind    PayloadKind
	Records []map[string]interface{}
	Feed    []map[string]interface{}
	Text    string
}

// RecordsPayload wraps already-structured records.
func RecordsPayload(records []map[string]interface{}) Payload {
	return Payload{Kind: PayloadRecords, Records: records}
}

// DecodePayload inspects a raw vendor response:
//   - a list whose elements are all maps is Records (an empty list included)
//   - a map carrying a "feed" list is Feed; non-map feed entries are skipped
//   - a string or byte slice holding JSON is decoded and inspected again
//   - a string that is not JSON is Text; a blank one is Unknown
//   - anything else is Unknown
func DecodePayload(raw interface{}) Payload {
	switch v := raw.(type) {
	case string:
		return decodeString(v)
	case []byte:
		return decodeString(string(v))
	case json.RawMessage:
		return decodeString(string(v))
	default:
		return decodeValue(raw)
	}
}

func decodeString(s string) Payload {
	if strings.TrimSpace(s) == "" {
		return Payload{Kind: PayloadUnknown}
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return Payload{Kind: PayloadText, Text: s}
	}
	return decodeValue(parsed)
}

func decodeValue(raw interface{}) Payload {
	switch v := raw.(type) {
	case []map[string]interface{}:
		return RecordsPayload(v)
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return Payload{Kind: PayloadUnknown}
			}
			records = append(records, m)
		}
		return RecordsPayload(records)
	case map[string]interface{}:
		feed, ok := v["feed"].([]interface{})
		if !ok {
			return Payload{Kind: PayloadUnknown}
		}
		items := make([]map[string]interface{}, 0, len(feed))
		for _, item := range feed {
			if m, ok := item.(map[string]interface{}); ok {
				items = append(items, m)
			}
		}
		return Payload{Kind: PayloadFeed, Feed: items}
	case string:
		if strings.TrimSpace(v) == "" {
			return Payload{Kind: PayloadUnknown}
		}
		return Payload{Kind: PayloadText, Text: v}
	default:
		return Payload{Kind: PayloadUnknown}
	}
}
