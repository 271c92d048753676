// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package library

import (
	"runtime"
	"sort"
	"time"

	"github.com/tesladash/clipforge/internal/clip"
)

// batchSize is the cooperative-batching unit from spec §5: the indexer
// processes this many files, publishes progress, then yields.
const batchSize = 500

// Progress reports how far BuildIndex has gotten through its input.
type Progress struct {
	Done, Total int
}

// assetKey identifies the (clipType, eventId) an event sidecar belongs to.
type assetKey struct {
	clipType clip.Type
	eventID  string
}

// BuildIndex groups files into ClipGroups and rolls them up into
// DayCollections per §4.2. onProgress may be nil; when non-nil it is called
// after every batch of batchSize files.
//
// In Go's multithreaded runtime the cooperative "yield" is a no-op
// (runtime.Gosched); the whole scan still completes on the calling
// goroutine, since that batching only matters for single-threaded
// runtimes.
func BuildIndex(files []clip.FileDescriptor, onProgress func(Progress)) *Index {
	groups := map[clip.GroupKey]*ClipGroup{}
	var order []clip.GroupKey

	type pendingAsset struct {
		kind clip.Kind
		fd   clip.FileDescriptor
	}
	assets := map[assetKey][]pendingAsset{}

	total := len(files)
	for i, fd := range files {
		p := clip.Parse(fd.RelPath)
		switch p.Kind {
		case clip.KindVideo:
			key := clip.GroupKey{ClipType: p.ClipType, EventID: p.EventID, TimestampKey: p.TimestampKey}
			g, ok := groups[key]
			if !ok {
				g = &ClipGroup{
					ID:            groupID(key),
					ClipType:      key.ClipType,
					EventID:       key.EventID,
					TimestampKey:  key.TimestampKey,
					FilesByCamera: map[clip.Camera]clip.ClipFile{},
				}
				groups[key] = g
				order = append(order, key)
			}
			g.FilesByCamera[p.Camera] = clip.ClipFile{
				ClipType: p.ClipType, EventID: p.EventID, TimestampKey: p.TimestampKey,
				Camera: p.Camera, File: fd,
			}
		case clip.KindEventJSON, clip.KindEventPNG, clip.KindEventMP4:
			ak := assetKey{clipType: p.ClipType, eventID: p.EventID}
			assets[ak] = append(assets[ak], pendingAsset{kind: p.Kind, fd: fd})
		default:
			// Not a Tesla clip: skip silently (§4.1/§4.2 failure semantics).
		}

		if onProgress != nil && (i+1)%batchSize == 0 {
			onProgress(Progress{Done: i + 1, Total: total})
			runtime.Gosched()
		}
	}
	if onProgress != nil && total%batchSize != 0 {
		onProgress(Progress{Done: total, Total: total})
	}

	// Attach sidecar assets to every group sharing (clipType, eventId).
	for _, key := range order {
		g := groups[key]
		if g.EventID == "" {
			continue
		}
		for _, a := range assets[assetKey{clipType: g.ClipType, eventID: g.EventID}] {
			switch a.kind {
			case clip.KindEventJSON:
				fd := a.fd
				g.EventJSON = &fd
				if meta, err := tryParseEventMeta(fd.Path); err == nil {
					g.EventMeta = &meta
				}
			case clip.KindEventPNG:
				fd := a.fd
				g.EventPNG = &fd
			case clip.KindEventMP4:
				fd := a.fd
				g.EventMP4 = &fd
			}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].TimestampKey < order[j].TimestampKey })

	ix := &Index{}
	for _, key := range order {
		ix.Groups = append(ix.Groups, groups[key])
	}
	ix.Collections = rollupDayCollections(ix.Groups)
	return ix
}

// rollupDayCollections buckets groups by day and clip type per §4.2:
//   - Recent: one collection per day.
//   - Sentry/Saved: one collection per event folder.
//   - Custom: one collection per day.
func rollupDayCollections(groups []*ClipGroup) []*DayCollection {
	type bucketKey struct {
		clipType clip.Type
		day      string
		eventID  string // only for Sentry/Saved
	}
	buckets := map[bucketKey][]*ClipGroup{}
	var order []bucketKey

	for _, g := range groups {
		date, _, ok := clip.ParseTimestampKey(g.TimestampKey)
		if !ok {
			continue
		}
		var bk bucketKey
		switch g.ClipType {
		case clip.Sentry, clip.Saved:
			bk = bucketKey{clipType: g.ClipType, day: date, eventID: g.EventID}
		default:
			bk = bucketKey{clipType: g.ClipType, day: date}
		}
		if _, ok := buckets[bk]; !ok {
			order = append(order, bk)
		}
		buckets[bk] = append(buckets[bk], g)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.day != b.day {
			return a.day < b.day
		}
		if a.clipType != b.clipType {
			return a.clipType < b.clipType
		}
		return a.eventID < b.eventID
	})

	var out []*DayCollection
	for _, bk := range order {
		gs := buckets[bk]
		sort.Slice(gs, func(i, j int) bool { return gs[i].TimestampKey < gs[j].TimestampKey })
		out = append(out, buildCollection(bk.clipType, bk.day, bk.eventID, gs))
	}
	return out
}

// buildCollection computes segmentStartsMs relative to the first group's
// wall-clock time within the collection (§4.2), clamped to ≥0.
func buildCollection(clipType clip.Type, day, eventID string, groups []*ClipGroup) *DayCollection {
	dc := &DayCollection{
		ID:       collectionID(clipType, day, eventID),
		Day:      day,
		ClipType: clipType,
		EventID:  eventID,
		Groups:   groups,
	}

	var baseMs int64
	haveBase := false
	starts := make([]int64, len(groups))
	for i, g := range groups {
		ms, ok := timestampKeyToEpochMs(g.TimestampKey)
		if !ok {
			starts[i] = 0
			continue
		}
		if !haveBase {
			baseMs = ms
			haveBase = true
		}
		d := ms - baseMs
		if d < 0 {
			d = 0
		}
		starts[i] = d
	}
	dc.SegmentStartsMs = starts

	last := int64(0)
	if len(starts) > 0 {
		last = starts[len(starts)-1]
	}
	dc.DurationMs = last + NominalSegDurMs
	return dc
}

// timestampKeyToEpochMs interprets timestampKey as local civil time (vehicle
// local, §4.2/§9). Invalid forms return ok=false.
func timestampKeyToEpochMs(key string) (int64, bool) {
	t, ok := TimestampKeyToTime(key)
	if !ok {
		return 0, false
	}
	return t.UnixMilli(), true
}

// TimestampKeyToTime interprets a Tesla timestampKey as local civil time
// (vehicle local, §4.2/§9). Invalid forms return ok=false. Exported so
// callers outside this package (e.g. the export planner's timestamp
// overlay) can derive a wall-clock anchor without re-implementing the
// parsing rule.
func TimestampKeyToTime(key string) (time.Time, bool) {
	date, clock, ok := clip.ParseTimestampKey(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02_15-04-05", date+"_"+clock, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CollectionBaseTime returns the wall-clock anchor for collection-relative
// ms 0: the first group's parsed timestampKey, or ok=false if it couldn't
// be parsed. buildCollection instead anchors on the first group whose key
// does parse.
func CollectionBaseTime(c *DayCollection) (time.Time, bool) {
	if len(c.Groups) == 0 {
		return time.Time{}, false
	}
	return TimestampKeyToTime(c.Groups[0].TimestampKey)
}

// tryParseEventMeta reads and parses event.json from disk. Indexing itself
// never needs to fail because of this: a missing or corrupt event.json just
// leaves EventMeta nil.
func tryParseEventMeta(path string) (EventMeta, error) {
	data, err := readFileLimited(path, 1<<20)
	if err != nil {
		return EventMeta{}, err
	}
	return ParseEventMeta(data)
}
