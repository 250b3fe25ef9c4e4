package event

import (
	"encoding/json"
	"slices"
	"strconv"
)

// Kinds the acceptance engine special-cases. The kind space is open; any
// other value is handled uniformly.
const (
	KindProfile  = "0"
	KindNote     = "1"
	KindFollow   = "3"
	KindReaction = "7"
)

// MarkerReply marks a note as a reply to the event named in E.
const MarkerReply = "reply"

// Tag is one (name, value) pair. Names may repeat within an event.
type Tag struct {
	Name  string
	Value string
}

// Event is a stored hub record.
type Event struct {
	ID         string
	From       string
	Kind       string
	Content    string
	Tags       []Tag
	Timestamp  int64
	E          string
	P          string // JSON-encoded list of participant identities
	Marker     string
	OriginalID string
}

// Participants decodes P. Anything that is not a JSON array of strings
// yields an empty list.
func (e Event) Participants() []string {
	if e.P == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(e.P), &list); err != nil || list == nil {
		return []string{}
	}
	return list
}

// HasParticipant reports whether id appears in the decoded P list.
func (e Event) HasParticipant(id string) bool {
	return slices.Contains(e.Participants(), id)
}

// HasToggleFields reports whether content, e and p are all present, the
// precondition for reaction and reply toggling.
func (e Event) HasToggleFields() bool {
	return e.Content != "" && e.E != "" && e.P != ""
}

// IsReply reports whether the event is a reply-marked note.
func (e Event) IsReply() bool {
	return e.Kind == KindNote && e.Marker == MarkerReply
}

// TagValue returns the value of the first tag named name.
func (e Event) TagValue(name string) (string, bool) {
	for _, t := range e.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// Clone returns a copy that shares no slices with e.
func (e Event) Clone() Event {
	c := e
	c.Tags = slices.Clone(e.Tags)
	return c
}

// fieldTable maps every accepted spelling of a well-known field to its
// accessor. Keys not listed here fall through to the tag list.
var fieldTable = map[string]func(Event) (string, bool){
	"id":          func(e Event) (string, bool) { return present(e.ID) },
	"Id":          func(e Event) (string, bool) { return present(e.ID) },
	"from":        func(e Event) (string, bool) { return present(e.From) },
	"From":        func(e Event) (string, bool) { return present(e.From) },
	"kind":        func(e Event) (string, bool) { return present(e.Kind) },
	"Kind":        func(e Event) (string, bool) { return present(e.Kind) },
	"content":     func(e Event) (string, bool) { return present(e.Content) },
	"Content":     func(e Event) (string, bool) { return present(e.Content) },
	"timestamp":   timestampField,
	"Timestamp":   timestampField,
	"e":           func(e Event) (string, bool) { return present(e.E) },
	"p":           func(e Event) (string, bool) { return present(e.P) },
	"marker":      func(e Event) (string, bool) { return present(e.Marker) },
	"Marker":      func(e Event) (string, bool) { return present(e.Marker) },
	"originalId":  func(e Event) (string, bool) { return present(e.OriginalID) },
	"Original-Id": func(e Event) (string, bool) { return present(e.OriginalID) },
}

func present(s string) (string, bool) {
	return s, s != ""
}

func timestampField(e Event) (string, bool) {
	return strconv.FormatInt(e.Timestamp, 10), true
}

// Field looks up a named field the way tag filters address events: a
// well-known field first, then the first tag with that name. Unknown keys
// and absent optional fields report false.
func (e Event) Field(key string) (string, bool) {
	if get, ok := fieldTable[key]; ok {
		return get(e)
	}
	return e.TagValue(key)
}
