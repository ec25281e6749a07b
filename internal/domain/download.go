package domain

import (
	"time"
)

// DownloadStatus represents the current status of a model download
type DownloadStatus string

const (
	StatusQueued      DownloadStatus = "queued"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusUnknown     DownloadStatus = "unknown"
)

// IsTerminal checks if the status causes eviction from the active registry
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusUnknown
}

// IsActive checks if the status may remain in the active registry
func (s DownloadStatus) IsActive() bool {
	return s == StatusQueued || s == StatusDownloading
}

// DownloadInfo represents one tracked model download
type DownloadInfo struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Status          DownloadStatus `json:"status"`
	Progress        int            `json:"progress"` // derived percentage, 0-100
	BytesDownloaded int64          `json:"bytes_downloaded"`
	TotalBytes      int64          `json:"total_bytes"` // 0 means total is unknown
	Timestamp       time.Time      `json:"timestamp"`
}

// NewDownloadInfo creates a freshly-queued download entry
func NewDownloadInfo(id int64, name string) DownloadInfo {
	return DownloadInfo{
		ID:        id,
		Name:      name,
		Status:    StatusQueued,
		Timestamp: time.Now(),
	}
}

// StatusSnapshot is one polled status report from the downloader subsystem
type StatusSnapshot struct {
	Status          DownloadStatus
	BytesDownloaded int64
	TotalBytes      int64
}

// RetireReason represents why an entry left the active registry
type RetireReason string

const (
	RetireCompleted  RetireReason = "completed"
	RetireFailed     RetireReason = "failed"
	RetireUnknown    RetireReason = "unknown"
	RetireCancelled  RetireReason = "cancelled"
	RetireQueryError RetireReason = "query_error"
)

// Retirement carries the last-known state of an entry. It is delivered
// exactly once, before the entry disappears from snapshots.
type Retirement struct {
	Info   DownloadInfo `json:"info"`
	Reason RetireReason `json:"reason"`
	Err    error        `json:"-"`
}
