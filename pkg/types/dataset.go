// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.yaml.in/yaml/v3"
)

// Entry is one model's row in a display sequence: its identifier plus the
// metrics the presentational layer renders.
type Entry struct {
	ID      string
	Metrics Metrics
}

// keys returns the metric names in sorted order.
func (e Entry) keys() []string {
	keys := make([]string, 0, len(e.Metrics))
	for k := range e.Metrics {
		if k == "id" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes the entry as a flat object with "id" first and the
// metric keys in sorted order.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	id, err := json.Marshal(e.ID)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"id":`)
	buf.Write(id)
	for _, k := range e.keys() {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Metrics[k])
		if err != nil {
			return nil, fmt.Errorf("encoding metric %s of %s: %w", k, e.ID, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat entry object back into ID and Metrics.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, ok := raw["id"].(string)
	if !ok {
		return fmt.Errorf("entry has no string id")
	}
	delete(raw, "id")
	e.ID = id
	e.Metrics = Metrics(raw)
	return nil
}

// MarshalYAML renders the entry as a mapping node in the same key order as
// MarshalJSON.
func (e Entry) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	node.Content = append(node.Content, scalar("id"), scalar(e.ID))
	for _, k := range e.keys() {
		var val yaml.Node
		if err := val.Encode(e.Metrics[k]); err != nil {
			return nil, fmt.Errorf("encoding metric %s of %s: %w", k, e.ID, err)
		}
		node.Content = append(node.Content, scalar(k), &val)
	}
	return node, nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Sequence is the ordered list of entries produced for one named view.
type Sequence struct {
	Name    string
	Entries []Entry
}

// MinimalDataset is the extractor's output: one Sequence per view, kept in
// view order.
type MinimalDataset struct {
	Sequences []Sequence
}

// Sequence returns the named sequence and whether it exists.
func (d MinimalDataset) Sequence(name string) (Sequence, bool) {
	for _, s := range d.Sequences {
		if s.Name == name {
			return s, true
		}
	}
	return Sequence{}, false
}

// EntryCount returns the total number of entries across all sequences.
func (d MinimalDataset) EntryCount() int {
	n := 0
	for _, s := range d.Sequences {
		n += len(s.Entries)
	}
	return n
}

// MarshalJSON writes the dataset as an object keyed by sequence name in
// sequence order.
func (d MinimalDataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d.Sequences {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		entries := s.Entries
		if entries == nil {
			entries = []Entry{}
		}
		body, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("encoding sequence %s: %w", s.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a dataset object, preserving the key order of the
// document.
func (d *MinimalDataset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dataset must be a JSON object")
	}
	d.Sequences = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var entries []Entry
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("decoding sequence %s: %w", name, err)
		}
		d.Sequences = append(d.Sequences, Sequence{Name: name, Entries: entries})
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML renders the dataset as a mapping in sequence order.
func (d MinimalDataset) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range d.Sequences {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range s.Entries {
			var item yaml.Node
			if err := item.Encode(e); err != nil {
				return nil, fmt.Errorf("encoding sequence %s: %w", s.Name, err)
			}
			seq.Content = append(seq.Content, &item)
		}
		node.Content = append(node.Content, scalar(s.Name), seq)
	}
	return node, nil
}
