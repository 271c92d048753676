// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package library builds a queryable in-memory index of a scanned Tesla
// footage tree: ClipGroups (one per recording moment) rolled up into
// DayCollections (one per playable unit), per spec §4.2.
package library

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tesladash/clipforge/internal/clip"
)

// EventMeta is the parsed contents of an event.json sidecar. Tesla's own
// schema varies by firmware; only the fields the dashboard/export care about
// are modeled; every raw field, modeled or not, stays readable through Field.
type EventMeta struct {
	Timestamp string `json:"timestamp"`
	City      string `json:"city"`
	Reason    string `json:"reason"`
	Camera    string `json:"camera"`

	rawFields map[string]any
}

// ParseEventMeta decodes an event.json payload, tolerating unknown fields.
func ParseEventMeta(data []byte) (EventMeta, error) {
	var m EventMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return EventMeta{}, err
	}
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	m.rawFields = raw
	return m, nil
}

// Field returns a raw, un-typed field from the source event.json, for
// firmware-specific attributes this struct doesn't model explicitly.
func (m EventMeta) Field(key string) (any, bool) {
	v, ok := m.rawFields[key]
	return v, ok
}

// ClipGroup is the set of per-camera files sharing a second-granularity
// timestamp: one Tesla recording "moment" (§3).
type ClipGroup struct {
	ID           string
	ClipType     clip.Type
	EventID      string
	TimestampKey string
	FilesByCamera map[clip.Camera]clip.ClipFile

	EventMeta *EventMeta
	EventJSON *clip.FileDescriptor
	EventPNG  *clip.FileDescriptor
	EventMP4  *clip.FileDescriptor
}

// groupID derives a deterministic id from the group's key tuple, so that
// scanning the same file set twice yields bytewise-identical ids (§8).
func groupID(key clip.GroupKey) string {
	return shortHash(string(key.ClipType) + "|" + key.EventID + "|" + key.TimestampKey)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// DayCollection is a roll-up of ClipGroups over a calendar day plus clip
// type, presented as a single playable unit (§3).
type DayCollection struct {
	ID       string
	Day      string // YYYY-MM-DD
	ClipType clip.Type
	EventID  string // set for Sentry/Saved (one collection per event folder)

	// Groups is ordered ascending by TimestampKey.
	Groups []*ClipGroup
	// SegmentStartsMs[i] is the collection-relative start of Groups[i],
	// parallel to Groups. SegmentStartsMs[0] == 0.
	SegmentStartsMs []int64
	// DurationMs is SegmentStartsMs[last] + NominalSegDurMs.
	DurationMs int64

	AnchorMs      *int64
	AnchorGroupID string
}

// collectionID derives a deterministic id (§8).
func collectionID(clipType clip.Type, day, eventID string) string {
	return shortHash(string(clipType) + "|" + day + "|" + eventID)
}

// NominalSegDurMs is the nominal Tesla segment duration (§4.3, §9): real
// footage can deviate; a per-file probe, when available, should preempt it.
const NominalSegDurMs = 60_000

// GroupDuration returns g's authoritative duration when any camera file in
// it carries an externally-probed DurationMs, else the nominal default
// (§9 open question). Shared by the telemetry extractor and export planner
// so both treat segment length identically.
func GroupDuration(g *ClipGroup) int64 {
	for _, cf := range g.FilesByCamera {
		if cf.File.DurationMs > 0 {
			return cf.File.DurationMs
		}
	}
	return NominalSegDurMs
}

// Index is the complete result of a Scan: every ClipGroup discovered plus
// every DayCollection rolled up from them.
type Index struct {
	Groups      []*ClipGroup
	Collections []*DayCollection
}

// GroupByID returns the group with the given id, or nil.
func (ix *Index) GroupByID(id string) *ClipGroup {
	for _, g := range ix.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}
