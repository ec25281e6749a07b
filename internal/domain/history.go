package domain

import "time"

// DownloadRecord represents a retired download persisted for history
type DownloadRecord struct {
	ID              uint           `json:"record_id" gorm:"primaryKey;autoIncrement"`
	DownloadID      int64          `json:"id" gorm:"not null;index"`
	Name            string         `json:"name" gorm:"not null"`
	Status          DownloadStatus `json:"status" gorm:"not null"`
	Reason          RetireReason   `json:"reason" gorm:"not null;index"`
	Progress        int            `json:"progress"`
	BytesDownloaded int64          `json:"bytes_downloaded"`
	TotalBytes      int64          `json:"total_bytes"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	RetiredAt       time.Time      `json:"retired_at" gorm:"autoCreateTime;index"`
}

// NewDownloadRecord builds a history record from a retirement event
func NewDownloadRecord(ret Retirement) *DownloadRecord {
	rec := &DownloadRecord{
		DownloadID:      ret.Info.ID,
		Name:            ret.Info.Name,
		Status:          ret.Info.Status,
		Reason:          ret.Reason,
		Progress:        ret.Info.Progress,
		BytesDownloaded: ret.Info.BytesDownloaded,
		TotalBytes:      ret.Info.TotalBytes,
		StartedAt:       ret.Info.Timestamp,
		RetiredAt:       time.Now(),
	}
	if ret.Err != nil {
		rec.ErrorMessage = ret.Err.Error()
	}
	return rec
}

// HistoryRepository defines persistence for retired downloads
type HistoryRepository interface {
	// Create stores one retirement record
	Create(record *DownloadRecord) error

	// FindRecent returns up to limit records, newest first
	FindRecent(limit int) ([]*DownloadRecord, error)

	// CountByReason returns the number of records per retirement reason
	CountByReason() (map[RetireReason]int64, error)
}
