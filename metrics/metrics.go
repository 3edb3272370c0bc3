// Package metrics keeps process-wide counters for /ops/status.
package metrics

import "sync/atomic"

var (
	photosAnalyzed uint64
	photosFailed   uint64
	uploadsTotal   uint64
	inboxImported  uint64
)

func PhotoAnalyzed() { atomic.AddUint64(&photosAnalyzed, 1) }

func PhotoFailed() { atomic.AddUint64(&photosFailed, 1) }

func UploadAccepted() { atomic.AddUint64(&uploadsTotal, 1) }

func InboxImported() { atomic.AddUint64(&inboxImported, 1) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	PhotosAnalyzed uint64 `json:"photos_analyzed"`
	PhotosFailed   uint64 `json:"photos_failed"`
	UploadsTotal   uint64 `json:"uploads_total"`
	InboxImported  uint64 `json:"inbox_imported"`
}

func Current() Snapshot {
	return Snapshot{
		PhotosAnalyzed: atomic.LoadUint64(&photosAnalyzed),
		PhotosFailed:   atomic.LoadUint64(&photosFailed),
		UploadsTotal:   atomic.LoadUint64(&uploadsTotal),
		InboxImported:  atomic.LoadUint64(&inboxImported),
	}
}

// Reset zeroes every counter. Only tests use this.
func Reset() {
	atomic.StoreUint64(&photosAnalyzed, 0)
	atomic.StoreUint64(&photosFailed, 0)
	atomic.StoreUint64(&uploadsTotal, 0)
	atomic.StoreUint64(&inboxImported, 0)
}
