package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScriptEntry is one tapescript label/text pair.
type ScriptEntry struct {
	Key  string
	Text string
}

// ScriptMap is an insertion-ordered string map. Reconciliation resolves
// ambiguous section matches by taking the first matching key in document
// order, so the order of keys in the source JSON object must survive a
// decode/encode round trip; a plain map[string]string cannot guarantee
// that.
type ScriptMap []ScriptEntry

// Get returns the text for key and whether it is present.
func (m ScriptMap) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Text, true
		}
	}
	return "", false
}

// Set appends the key or replaces an existing entry's text in place.
func (m *ScriptMap) Set(key, text string) {
	for i, e := range *m {
		if e.Key == key {
			(*m)[i].Text = text
			return
		}
	}
	*m = append(*m, ScriptEntry{Key: key, Text: text})
}

// MarshalJSON encodes the map as a JSON object with keys in insertion
// order.
func (m ScriptMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order. Duplicate
// keys keep the last value but the first position.
func (m *ScriptMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("scriptmap: expected JSON object, got %v", tok)
	}

	out := ScriptMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("scriptmap: non-string key %v", keyTok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("scriptmap: value for %q: %w", key, err)
		}
		out.Set(key, text)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
