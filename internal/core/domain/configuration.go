package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Configuration is an ordered string-keyed mapping of raw JSON values.
// It is stored and returned verbatim: key order and value encoding survive a
// round trip, and values are never interpreted beyond the few lookups
// connectivity checks perform.
type Configuration struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewConfiguration creates an empty configuration.
func NewConfiguration() Configuration {
	return Configuration{values: map[string]json.RawMessage{}}
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (c *Configuration) Set(key string, value json.RawMessage) {
	if c.values == nil {
		c.values = map[string]json.RawMessage{}
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = append(json.RawMessage(nil), value...)
}

// Get returns the raw value for key.
func (c Configuration) Get(key string) (json.RawMessage, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the value for key when it is a JSON string.
func (c Configuration) GetString(key string) (string, bool) {
	raw, ok := c.values[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Keys returns the keys in insertion order.
func (c Configuration) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c Configuration) Len() int {
	return len(c.keys)
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := NewConfiguration()
	for _, k := range c.keys {
		out.Set(k, c.values[k])
	}
	return out
}

// MarshalJSON writes the object with keys in insertion order.
func (c Configuration) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(c.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order. null yields an
// empty configuration; any other non-object is rejected.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	*c = NewConfiguration()

	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("configuration: expected JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("configuration: expected string key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("configuration: value for %q: %w", key, err)
		}
		c.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	return nil
}
