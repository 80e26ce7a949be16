package dump1090

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// MaxHistoryCount bounds the history count accepted from receiver.json.
// dump1090 retains about 120 files; anything far beyond that is bogus.
const MaxHistoryCount = 1000

// HistoryFile is one retained history_N.json snapshot.
type HistoryFile struct {
	Index int
	Snapshot
}

// History is the reconciled view of every retained history file:
// one record per distinct aircraft, taken from the most recent file that
// contains it.
type History struct {
	// Aircraft holds one record per hex id, most recent file first
	Aircraft []Aircraft

	// Messages is the sum of the accepted files' message counts
	Messages int64

	// Files is the number of history files accepted
	Files int

	// Skipped lists the indices that failed to fetch or had no timestamp
	Skipped []int

	// Newest and Oldest are the extreme "now" values among accepted files
	Newest time.Time
	Oldest time.Time
}

func historyPath(index int) string {
	return fmt.Sprintf("history_%d.json", index)
}

// FetchHistoryFile loads history_<index>.json. ok is false when the file
// could not be fetched or carries no "now" timestamp.
func FetchHistoryFile(ctx context.Context, f Fetcher, index int) (HistoryFile, bool) {
	file := HistoryFile{Index: index}
	if !f.Fetch(ctx, historyPath(index), &file.Snapshot) {
		return HistoryFile{}, false
	}
	if file.Now == nil {
		return HistoryFile{}, false
	}
	return file, true
}

// Reconcile fetches history_0.json through history_<count>.json one at a
// time and merges them into a single deduplicated aircraft sequence.
//
// Files that fail to load are skipped. The rest are ordered by their "now"
// timestamp, newest first, and an aircraft is kept only from the newest file
// that mentions it. This issues count+1 sequential requests and can be slow
// on a busy receiver.
//
// If ctx is canceled the reconciliation is abandoned and ctx.Err() returned;
// there is no partial result.
func Reconcile(ctx context.Context, f Fetcher, count int) (*History, error) {
	if count < 0 || count > MaxHistoryCount {
		return nil, ErrHistoryCountUnknown
	}

	var files []HistoryFile
	var skipped []int
	for i := 0; i <= count; i++ {
		file, ok := FetchHistoryFile(ctx, f, i)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("history reconciliation cancelled at file %d: %w", i, err)
		}
		if !ok {
			skipped = append(skipped, i)
			continue
		}
		files = append(files, file)
	}

	return mergeHistory(files, skipped), nil
}

// mergeHistory orders files newest first and folds their aircraft together.
// Files with equal timestamps keep their index order.
func mergeHistory(files []HistoryFile, skipped []int) *History {
	sort.SliceStable(files, func(i, j int) bool {
		return *files[i].Now > *files[j].Now
	})

	h := &History{
		Files:   len(files),
		Skipped: skipped,
	}
	set := newAircraftSet()
	for _, file := range files {
		if file.Messages != nil {
			h.Messages += *file.Messages
		}
		for _, ac := range file.Aircraft {
			set.add(ac)
		}
	}
	h.Aircraft = set.aircraft

	if len(files) > 0 {
		h.Newest = unixSeconds(*files[0].Now)
		h.Oldest = unixSeconds(*files[len(files)-1].Now)
	}
	return h
}

// Span is the time covered by the accepted history files.
func (h *History) Span() time.Duration {
	return h.Newest.Sub(h.Oldest)
}

// Find looks up an aircraft in the reconciled history with the same rules
// as Registry.Find.
func (h *History) Find(hex, flight string) (Aircraft, bool, error) {
	return findAircraft(h.Aircraft, hex, flight)
}
