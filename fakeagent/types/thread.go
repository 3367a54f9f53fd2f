// fakeagent/types/thread.go
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Thread is the conversation the caller asks the agent to answer.
type Thread struct {
	ID         string                 `json:"id"`
	CreatedAt  string                 `json:"created_at"`
	UpdatedAt  string                 `json:"updated_at"`
	Metadata   map[string]interface{} `json:"metadata"`
	ClientID   string                 `json:"client_id"`
	Type       string                 `json:"type"`
	Activities []Activity             `json:"activities"`

	missing []string
}

type Activity struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Role      string  `json:"role"`
	Content   Content `json:"content"`
	CreatedAt string  `json:"created_at"`
	RunID     *string `json:"run_id,omitempty"`

	missing []string
}

var (
	threadRequired   = []string{"id", "created_at", "updated_at", "metadata", "client_id", "type", "activities"}
	activityRequired = []string{"id", "type", "role", "created_at"}
)

// MissingFieldsError lists required request fields that were absent or null.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "field required: " + strings.Join(e.Fields, ", ")
}

// missingKeys reports which of keys are absent from, or null in, the JSON object data.
func missingKeys(data []byte, keys []string) ([]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	var missing []string
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

func (t *Thread) UnmarshalJSON(data []byte) error {
	type plain Thread
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	missing, err := missingKeys(data, threadRequired)
	if err != nil {
		return err
	}
	*t = Thread(p)
	t.missing = missing
	return nil
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	type plain Activity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	missing, err := missingKeys(data, activityRequired)
	if err != nil {
		return err
	}
	*a = Activity(p)
	a.missing = missing
	return nil
}

// Validate reports the required fields a decoded thread or any of its
// activities lacked. content and run_id are optional.
func (t Thread) Validate() error {
	var fields []string
	for _, f := range t.missing {
		fields = append(fields, "thread."+f)
	}
	for i, a := range t.Activities {
		for _, f := range a.missing {
			fields = append(fields, fmt.Sprintf("thread.activities[%d].%s", i, f))
		}
	}
	if len(fields) > 0 {
		return &MissingFieldsError{Fields: fields}
	}
	return nil
}

// Content is an arbitrary JSON value carried by an activity. It is either
// text or structured JSON; Text reports which.
type Content struct {
	raw json.RawMessage
}

func TextContent(s string) Content {
	b, _ := json.Marshal(s)
	return Content{raw: b}
}

// JSONContent wraps an already encoded JSON value.
func JSONContent(raw json.RawMessage) Content {
	return Content{raw: append(json.RawMessage(nil), raw...)}
}

// Text returns the content as a string when it is a JSON string.
func (c Content) Text() (string, bool) {
	if c.Kind() != "text" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(c.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Kind names the JSON type of the content: text, object, array, number, bool or null.
func (c Content) Kind() string {
	trimmed := bytes.TrimSpace(c.raw)
	if len(trimmed) == 0 {
		return "null"
	}
	switch trimmed[0] {
	case '"':
		return "text"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func (c Content) Raw() json.RawMessage {
	if len(c.raw) == 0 {
		return json.RawMessage("null")
	}
	return c.raw
}

func (c Content) MarshalJSON() ([]byte, error) {
	return c.Raw(), nil
}

func (c *Content) UnmarshalJSON(data []byte) error {
	c.raw = append(c.raw[:0], data...)
	return nil
}
