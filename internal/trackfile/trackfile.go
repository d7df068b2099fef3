// Package trackfile reads learning tracks produced by the content service
// from a JSON or YAML file.
//
// Both a bare list of tracks and an object with a "tracks" key are accepted:
//
//	tracks:
//	  - id: basics
//	    title: Foundations
//	    target_score: 450
//	    days:
//	      - sessions:
//	          - {course_title: Grammar, lesson_title: Articles, section_title: A1, duration_minutes: 30, type: video}
package trackfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"studyplan/internal/plan"
)

var ErrUnknownTrack = errors.New("trackfile: unknown track id")

type document struct {
	Tracks []plan.Track `json:"tracks" yaml:"tracks"`
}

// Load reads and parses path. The format follows the file extension
// (.yaml/.yml, otherwise JSON).
func Load(path string) ([]plan.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tracks, err := Parse(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return tracks, nil
}

// Parse decodes data, fills missing daily totals and validates the tracks.
func Parse(name string, data []byte) ([]plan.Track, error) {
	var (
		tracks []plan.Track
		err    error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		tracks, err = parseYAML(data)
	default:
		tracks, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}
	Normalize(tracks)
	if err := plan.ValidateTracks(tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func parseJSON(data []byte) ([]plan.Track, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var ts []plan.Track
		if err := json.Unmarshal(data, &ts); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		return ts, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return doc.Tracks, nil
}

func parseYAML(data []byte) ([]plan.Track, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var ts []plan.Track
		if err := root.Decode(&ts); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		return ts, nil
	}
	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return doc.Tracks, nil
}

// Normalize fills TotalMinutes for daily plans that left it empty.
func Normalize(tracks []plan.Track) {
	for i := range tracks {
		for j := range tracks[i].Days {
			d := &tracks[i].Days[j]
			if d.TotalMinutes <= 0 {
				d.TotalMinutes = plan.SumMinutes(d.Sessions)
			}
		}
	}
}

// Select returns the tracks named by ids, in ids order. An empty ids list
// selects every track in file order.
func Select(tracks []plan.Track, ids []string) ([]plan.Track, error) {
	if len(ids) == 0 {
		return append([]plan.Track(nil), tracks...), nil
	}
	byID := make(map[string]int, len(tracks))
	for i, t := range tracks {
		byID[t.ID] = i
	}
	out := make([]plan.Track, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		i, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTrack, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, tracks[i])
	}
	return out, nil
}

// IDs lists track ids in order.
func IDs(tracks []plan.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}
