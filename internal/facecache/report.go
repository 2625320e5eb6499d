package facecache

import "time"

// Outcome is what happened to one image during indexing.
type Outcome string

const (
	OutcomeIndexed Outcome = "indexed" // at least one face encoded
	OutcomeNoFace  Outcome = "no_face" // decoded but no face found
	OutcomeError   Outcome = "error"   // read or encode failed, image skipped
	OutcomeRemoved Outcome = "removed" // dropped from the cache, file is gone
)

// Source says where the cache contents came from.
type Source string

const (
	SourceDisabled Source = "disabled" // encoder unavailable, nothing loaded
	SourceNoFolder Source = "no_folder"
	SourceCache    Source = "cache"
	SourceRebuild  Source = "rebuild"
	SourceRefresh  Source = "refresh"
)

// Result is the typed outcome of processing a single image.
type Result struct {
	Filename string
	Outcome  Outcome
	Faces    int
	Err      error
}

// Report summarises an indexing run.
type Report struct {
	Source   Source
	Results  []Result
	Stale    Staleness
	LoadErr  error // why the persisted cache was not used
	SaveErr  error // persisting failed; the in-memory cache is still valid
	Duration time.Duration
}

// Count returns the number of results with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Staleness lists the differences between the cache and the image folder.
type Staleness struct {
	Added   []string
	Changed []string
	Removed []string
}

// IsStale returns true when the cache no longer reflects the folder.
func (s Staleness) IsStale() bool {
	return len(s.Added)+len(s.Changed)+len(s.Removed) > 0
}
