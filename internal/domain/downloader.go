package domain

import "context"

// Downloader defines the interface to the external transfer subsystem.
// Identifiers are assigned by the caller at submission time; the subsystem
// may be slow and may error transiently.
type Downloader interface {
	// CheckStatus queries the current status of a transfer
	CheckStatus(ctx context.Context, id int64) (StatusSnapshot, error)

	// CancelTransfer asks the subsystem to abort a transfer
	CancelTransfer(ctx context.Context, id int64) error
}

// Submitter starts new transfers. Kept separate from Downloader because the
// registry only ever needs status and abort.
type Submitter interface {
	// Submit hands a URL to the transfer subsystem under the given id
	Submit(ctx context.Context, id int64, url string) error
}
