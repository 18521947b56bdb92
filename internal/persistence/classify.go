package persistence

import (
	"encoding/json"
	"reflect"

	"codeberg.org/docflow/server/docflow/documents"
)

// classifies an edit by comparing the stored content with the incoming one.
// create when nothing meaningful was stored, title_change when only the title moved
func Classify(previous, next json.RawMessage) string {
	prev, ok := decodeObject(previous)
	if !ok || isEmptyValue(prev["blocks"]) {
		return documents.ActionCreate
	}

	incoming, _ := decodeObject(next)

	if !reflect.DeepEqual(prev["title"], incoming["title"]) &&
		reflect.DeepEqual(prev["blocks"], incoming["blocks"]) {
		return documents.ActionTitleChange
	}

	return documents.ActionEdit
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}

	return obj, true
}

func isJSONObject(raw json.RawMessage) bool {
	_, ok := decodeObject(raw)
	return ok
}

// null, false, zero, "" and empty containers count as empty
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case float64:
		return val == 0
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
