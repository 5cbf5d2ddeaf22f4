package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const trackerFile = "reported_videos.json"

// ReportTracker remembers which videos already went out in a digest so the
// watchlist agent does not re-analyze them within the retention window.
type ReportTracker struct {
	filePath string
	reported map[string]TrackedReport
	mu       sync.RWMutex
	maxAge   time.Duration
}

// TrackedReport is one persisted entry.
type TrackedReport struct {
	VideoID    string    `json:"video_id"`
	ReportedAt time.Time `json:"reported_at"`
	HookScore  float64   `json:"hook_score"`
	Source     string    `json:"source,omitempty"`
}

// NewReportTracker loads dataDir/reported_videos.json, creating dataDir if
// needed, and drops entries older than maxAge.
func NewReportTracker(dataDir string, maxAge time.Duration) (*ReportTracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tracker := &ReportTracker{
		filePath: filepath.Join(dataDir, trackerFile),
		reported: make(map[string]TrackedReport),
		maxAge:   maxAge,
	}

	if err := tracker.load(); err != nil {
		return nil, fmt.Errorf("failed to load report tracker data: %w", err)
	}
	tracker.cleanup(time.Now())

	return tracker, nil
}

// IsReported checks if a video was reported within the retention window.
func (rt *ReportTracker) IsReported(videoID string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	entry, ok := rt.reported[videoID]
	if !ok {
		return false
	}
	return time.Since(entry.ReportedAt) < rt.maxAge
}

// MarkReported records entries and persists the tracker. Entries with a
// zero ReportedAt are stamped with the current time.
func (rt *ReportTracker) MarkReported(entries ...TrackedReport) error {
	if len(entries) == 0 {
		return nil
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := time.Now()
	for _, e := range entries {
		if e.ReportedAt.IsZero() {
			e.ReportedAt = now
		}
		rt.reported[e.VideoID] = e
	}
	return rt.save()
}

// Count returns the number of tracked videos.
func (rt *ReportTracker) Count() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.reported)
}

func (rt *ReportTracker) cleanup(now time.Time) {
	cutoff := now.Add(-rt.maxAge)
	for id, entry := range rt.reported {
		if entry.ReportedAt.Before(cutoff) {
			delete(rt.reported, id)
		}
	}
}

func (rt *ReportTracker) load() error {
	file, err := os.Open(rt.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open tracker file: %w", err)
	}
	defer file.Close()

	var entries []TrackedReport
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode tracker data: %w", err)
	}
	for _, e := range entries {
		rt.reported[e.VideoID] = e
	}
	return nil
}

// save writes to a temp file and renames it over the tracker file so a crash
// never leaves a truncated file behind.
func (rt *ReportTracker) save() error {
	entries := make([]TrackedReport, 0, len(rt.reported))
	for _, e := range rt.reported {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].VideoID < entries[j].VideoID })

	tmp, err := os.CreateTemp(filepath.Dir(rt.filePath), trackerFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode tracker data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write tracker data: %w", err)
	}
	if err := os.Rename(tmp.Name(), rt.filePath); err != nil {
		return fmt.Errorf("failed to replace tracker file: %w", err)
	}
	return nil
}
