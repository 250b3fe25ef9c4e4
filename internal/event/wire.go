package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// wireEvent is the canonical outbound shape.
type wireEvent struct {
	ID         string      `json:"id,omitempty"`
	From       string      `json:"from,omitempty"`
	Kind       string      `json:"kind,omitempty"`
	Content    string      `json:"content,omitempty"`
	Tags       [][2]string `json:"tags"`
	Timestamp  int64       `json:"timestamp"`
	E          string      `json:"e,omitempty"`
	P          string      `json:"p,omitempty"`
	Marker     string      `json:"marker,omitempty"`
	OriginalID string      `json:"originalId,omitempty"`
}

// MarshalJSON writes the canonical lower-case shape with tags as
// [[name, value], ...].
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:         e.ID,
		From:       e.From,
		Kind:       e.Kind,
		Content:    e.Content,
		Tags:       make([][2]string, len(e.Tags)),
		Timestamp:  e.Timestamp,
		E:          e.E,
		P:          e.P,
		Marker:     e.Marker,
		OriginalID: e.OriginalID,
	}
	for i, t := range e.Tags {
		w.Tags[i] = [2]string{t.Name, t.Value}
	}
	return json.Marshal(w)
}

// wireKeys maps every accepted key spelling to its canonical name.
var wireKeys = map[string]string{
	"id": "id", "Id": "id", "ID": "id",
	"from": "from", "From": "from",
	"kind": "kind", "Kind": "kind",
	"content": "content", "Content": "content",
	"tags": "tags", "Tags": "tags",
	"timestamp": "timestamp", "Timestamp": "timestamp",
	"e": "e", "E": "e",
	"p": "p", "P": "p",
	"marker": "marker", "Marker": "marker",
	"originalId": "originalId", "Original-Id": "originalId", "OriginalId": "originalId",
}

// UnmarshalJSON accepts the publish shape, the capitalized query-result
// shape and the flattened shape. Unknown top-level keys holding scalar
// values become tags, in key order. When one field arrives under several
// spellings the lower-case one wins, then the others in byte order.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("event: %w", err)
	}

	var known, extra []string
	for key := range raw {
		if _, ok := wireKeys[key]; ok {
			known = append(known, key)
		} else {
			extra = append(extra, key)
		}
	}
	sort.Slice(known, func(i, j int) bool {
		a, b := known[i], known[j]
		if ca, cb := a == wireKeys[a], b == wireKeys[b]; ca != cb {
			return ca
		}
		return a < b
	})

	var out Event
	decoded := make(map[string]bool, len(known))
	for _, key := range known {
		canon, val := wireKeys[key], raw[key]
		if decoded[canon] {
			continue
		}
		decoded[canon] = true
		var err error
		switch canon {
		case "id":
			out.ID, err = decodeText(val)
		case "from":
			out.From, err = decodeText(val)
		case "kind":
			out.Kind, err = decodeText(val)
		case "content":
			out.Content, err = decodeText(val)
		case "tags":
			out.Tags, err = decodeTags(val)
		case "timestamp":
			out.Timestamp, err = decodeTimestamp(val)
		case "e":
			out.E, err = decodeText(val)
		case "p":
			out.P, err = decodeParticipants(val)
		case "marker":
			out.Marker, err = decodeText(val)
		case "originalId":
			out.OriginalID, err = decodeText(val)
		}
		if err != nil {
			return fmt.Errorf("event: field %q: %w", key, err)
		}
	}

	// Flattened tags only count when no explicit tag list was sent.
	if len(out.Tags) == 0 && len(extra) > 0 {
		sort.Strings(extra)
		for _, key := range extra {
			v, err := decodeText(raw[key])
			if err != nil {
				continue
			}
			out.Tags = append(out.Tags, Tag{Name: key, Value: v})
		}
	}

	*e = out
	return nil
}

// Flatten renders the query-result shape: capitalized well-known keys,
// the tag list, and each tag name lifted to a top-level key (first value
// wins, well-known keys are never shadowed).
func (e Event) Flatten() map[string]any {
	out := map[string]any{
		"Id":        e.ID,
		"From":      e.From,
		"Kind":      e.Kind,
		"Timestamp": e.Timestamp,
	}
	setIf := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	setIf("Content", e.Content)
	setIf("e", e.E)
	setIf("p", e.P)
	setIf("Marker", e.Marker)
	setIf("Original-Id", e.OriginalID)

	tags := make([]any, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = []any{t.Name, t.Value}
		if _, taken := out[t.Name]; !taken {
			if _, reserved := wireKeys[t.Name]; !reserved {
				out[t.Name] = t.Value
			}
		}
	}
	out["Tags"] = tags
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// decodeText accepts a JSON string or number and returns its text.
func decodeText(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number")
	}
	return n.String(), nil
}

func decodeTimestamp(raw json.RawMessage) (int64, error) {
	text, err := decodeText(raw)
	if err != nil || text == "" {
		return 0, err
	}
	ts, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp must be an integer: %w", err)
	}
	return ts, nil
}

// decodeParticipants accepts p as an already-encoded string or as a JSON
// array, which is compacted into its string form.
func decodeParticipants(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return decodeText(raw)
}

// decodeTags accepts [[name, value], ...] and [{name, value}, ...].
func decodeTags(raw json.RawMessage) ([]Tag, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("tags must be an array")
	}
	tags := make([]Tag, 0, len(items))
	for i, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 {
			continue
		}
		switch trimmed[0] {
		case '[':
			var pair []json.RawMessage
			if err := json.Unmarshal(trimmed, &pair); err != nil || len(pair) == 0 {
				return nil, fmt.Errorf("tags[%d]: expected [name, value]", i)
			}
			name, err := decodeText(pair[0])
			if err != nil {
				return nil, fmt.Errorf("tags[%d]: %w", i, err)
			}
			var value string
			if len(pair) > 1 {
				if value, err = decodeText(pair[1]); err != nil {
					return nil, fmt.Errorf("tags[%d]: %w", i, err)
				}
			}
			tags = append(tags, Tag{Name: name, Value: value})
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(trimmed, &obj); err != nil {
				return nil, fmt.Errorf("tags[%d]: %w", i, err)
			}
			name, err := decodeText(firstOf(obj, "name", "Name"))
			if err != nil {
				return nil, fmt.Errorf("tags[%d]: %w", i, err)
			}
			value, err := decodeText(firstOf(obj, "value", "Value"))
			if err != nil {
				return nil, fmt.Errorf("tags[%d]: %w", i, err)
			}
			tags = append(tags, Tag{Name: name, Value: value})
		default:
			return nil, fmt.Errorf("tags[%d]: expected array or object", i)
		}
	}
	return tags, nil
}

func firstOf(obj map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}
