package shots

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoShots indicates the artifact yielded an empty shot sequence. Stage 2
// must not be attempted in that case.
var ErrNoShots = errors.New("no shots found in artifact")

// Record is one storyboard shot projected down to the fields round2 needs.
// ShotID is carried through unchanged (the API emits both strings and
// numbers); a record without one is kept, not rejected.
type Record struct {
	ShotID json.RawMessage `json:"shot_id,omitempty"`
	Action string          `json:"action"`
	Visual string          `json:"visual"`
}

// promptSources are the alternate field names the prompt text may live under,
// in preference order.
var promptSources = [...]string{"visual", "text", "prompt"}

// arrayCandidate names one place the shot array may live inside the artifact.
type arrayCandidate struct {
	name string
	path []string
}

// arrayCandidates is the fixed lookup order for the shot array. The first
// candidate that exists and is array-typed wins; nothing is merged across
// candidates.
var arrayCandidates = [...]arrayCandidate{
	{name: "pictures", path: []string{"pictures"}},
	{name: "result.pictures", path: []string{"result", "pictures"}},
	{name: "data.pictures", path: []string{"data", "pictures"}},
	{name: "payload.pictures", path: []string{"payload", "pictures"}},
	{name: "shots", path: []string{"shots"}},
	{name: "result.shots", path: []string{"result", "shots"}},
}

// Extract finds the raw shot array inside a storyboard artifact. The artifact
// may already be an array at top level, or the array may be nested under one
// of the known wrapper fields. Returns false when no candidate is an array.
func Extract(doc []byte) (json.RawMessage, bool) {
	var top json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, false
	}
	if isArray(top) {
		return top, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(top, &obj); err != nil {
		return nil, false
	}
	for _, cand := range arrayCandidates {
		if raw, ok := dig(obj, cand.path); ok && isArray(raw) {
			return raw, true
		}
	}
	return nil, false
}

// Normalize extracts the shot array from the artifact and projects each
// element to the minimal record shape. An empty sequence is an error.
func Normalize(doc []byte) ([]Record, error) {
	raw, ok := Extract(doc)
	if !ok {
		return nil, fmt.Errorf("%w: no shot array in any known location", ErrNoShots)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: shot array is malformed: %v", ErrNoShots, err)
	}

	records := make([]Record, 0, len(elems))
	for _, elem := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			// Non-object elements carry nothing projectable.
			continue
		}
		records = append(records, project(fields))
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: artifact shot array is empty", ErrNoShots)
	}
	return records, nil
}

func project(fields map[string]json.RawMessage) Record {
	rec := Record{
		ShotID: fields["shot_id"],
		Action: stringField(fields, "action"),
	}
	for _, name := range promptSources {
		if _, ok := fields[name]; ok {
			rec.Visual = stringField(fields, name)
			break
		}
	}
	return rec
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func dig(obj map[string]json.RawMessage, path []string) (json.RawMessage, bool) {
	cur := obj
	for i, key := range path {
		raw, ok := cur[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return raw, true
		}
		next := map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b == '['
		}
	}
	return false
}
