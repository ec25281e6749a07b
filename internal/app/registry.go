package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
)

// Registry owns the set of active model downloads and reconciles it against
// the external downloader subsystem. All mutations (register, cancel, merge)
// are serialized behind one mutex; observers only ever see copies.
type Registry struct {
	downloader domain.Downloader
	config     *domain.PollerConfig
	logger     *zap.Logger

	mu       sync.Mutex
	entries  map[int64]domain.DownloadInfo
	polling  bool
	closed   bool
	loopWg   sync.WaitGroup
	stopChan chan struct{}

	retiredFns  []func(domain.Retirement)
	subscribers map[int]chan []domain.DownloadInfo
	nextSubID   int
}

// NewRegistry creates a new download registry
func NewRegistry(downloader domain.Downloader, config *domain.PollerConfig, logger *zap.Logger) *Registry {
	if config == nil {
		defaults := domain.DefaultConfig().Poller
		config = &defaults
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		downloader:  downloader,
		config:      config,
		logger:      logger,
		entries:     make(map[int64]domain.DownloadInfo),
		stopChan:    make(chan struct{}),
		subscribers: make(map[int]chan []domain.DownloadInfo),
	}
}

// Register starts tracking a download under the given id. Registering an id
// that is already tracked is not an error; the entry is re-armed to queued.
// The reconciliation loop is started if it is not already running.
func (r *Registry) Register(id int64, name string) {
	r.mu.Lock()
	r.entries[id] = domain.NewDownloadInfo(id, name)
	start := !r.polling && !r.closed
	if start {
		r.polling = true
		r.loopWg.Add(1)
	}
	r.mu.Unlock()

	r.logger.Info("Download registered",
		zap.Int64("id", id),
		zap.String("name", name),
		zap.Bool("loop_started", start))

	if start {
		go r.pollLoop()
	}

	r.publishSnapshot()
}

// Cancel asks the downloader subsystem to abort the transfer and removes the
// entry. The entry is removed even when the abort request fails; the failure
// is returned so callers can report it.
func (r *Registry) Cancel(id int64) error {
	r.mu.Lock()
	entry, tracked := r.entries[id]
	if tracked {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !tracked {
		return nil
	}

	r.emitRetirement(domain.Retirement{Info: entry, Reason: domain.RetireCancelled})
	r.publishSnapshot()

	ctx, cancel := context.WithTimeout(context.Background(), r.config.QueryTimeout)
	defer cancel()

	if err := r.downloader.CancelTransfer(ctx, id); err != nil {
		r.logger.Warn("Abort request failed, entry evicted anyway",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to abort transfer %d: %w", id, err)
	}

	r.logger.Info("Download cancelled", zap.Int64("id", id))
	return nil
}

// Snapshot returns a copy of all currently-tracked entries, ordered by id
func (r *Registry) Snapshot() []domain.DownloadInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.DownloadInfo {
	infos := make([]domain.DownloadInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		infos = append(infos, entry)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Subscribe returns a channel that receives the new snapshot after every
// merge pass, plus a function to unsubscribe. Sends are non-blocking; a slow
// consumer misses intermediate snapshots, never blocks the poller.
func (r *Registry) Subscribe() (<-chan []domain.DownloadInfo, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	ch := make(chan []domain.DownloadInfo, 8)
	r.subscribers[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(sub)
		}
	}
}

// OnRetired registers a callback fired exactly once per removed entry,
// carrying its last-known state and the reason for removal.
func (r *Registry) OnRetired(fn func(domain.Retirement)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retiredFns = append(r.retiredFns, fn)
}

// IsPolling returns whether the reconciliation loop is currently running
func (r *Registry) IsPolling() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polling
}

// Close stops the reconciliation loop and closes all subscriber channels.
// Entries registered after Close are kept but no longer reconciled.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := r.subscribers
	r.subscribers = make(map[int]chan []domain.DownloadInfo)
	r.mu.Unlock()

	close(r.stopChan)
	r.loopWg.Wait()

	for _, ch := range subs {
		close(ch)
	}
}

// pollLoop is the reconciliation loop: sleep, tick, stop once the registry
// is empty. Sleeping before each tick means ticks can never overlap.
func (r *Registry) pollLoop() {
	defer r.loopWg.Done()

	r.logger.Debug("Reconciliation loop started")

	for {
		select {
		case <-r.stopChan:
			r.mu.Lock()
			r.polling = false
			r.mu.Unlock()
			r.logger.Debug("Reconciliation loop stopped", zap.String("reason", "closed"))
			return
		case <-time.After(r.config.Interval):
		}

		r.tick()

		r.mu.Lock()
		if len(r.entries) == 0 {
			r.polling = false
			r.mu.Unlock()
			r.logger.Debug("Reconciliation loop stopped", zap.String("reason", "registry_empty"))
			return
		}
		r.mu.Unlock()
	}
}

// tick queries the downloader for every tracked id, sequentially and in
// ascending id order, and merges each result. Per-id failures evict that
// entry only and never abort the rest of the tick.
func (r *Registry) tick() {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var retired []domain.Retirement
	for _, id := range ids {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.QueryTimeout)
		snapshot, err := r.downloader.CheckStatus(ctx, id)
		cancel()

		if ret, evicted := r.merge(id, snapshot, err); evicted {
			retired = append(retired, ret)
		}
	}

	for _, ret := range retired {
		r.emitRetirement(ret)
	}
	r.publishSnapshot()
}

// merge applies one polled status to the entry for id. Merging an id that is
// no longer tracked (cancelled mid-tick) is a no-op. Returns the retirement
// event when the merge evicted the entry.
func (r *Registry) merge(id int64, snapshot domain.StatusSnapshot, queryErr error) (domain.Retirement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, tracked := r.entries[id]
	if !tracked {
		return domain.Retirement{}, false
	}

	if queryErr != nil {
		entry.Status = domain.StatusUnknown
		delete(r.entries, id)
		return domain.Retirement{Info: entry, Reason: domain.RetireQueryError, Err: queryErr}, true
	}

	switch snapshot.Status {
	case domain.StatusCompleted:
		entry.Status = domain.StatusCompleted
		entry.Progress = 100
		if snapshot.BytesDownloaded > 0 {
			entry.BytesDownloaded = snapshot.BytesDownloaded
		}
		if snapshot.TotalBytes > 0 {
			entry.TotalBytes = snapshot.TotalBytes
		}
		delete(r.entries, id)
		return domain.Retirement{Info: entry, Reason: domain.RetireCompleted}, true

	case domain.StatusFailed:
		entry.Status = domain.StatusFailed
		delete(r.entries, id)
		return domain.Retirement{Info: entry, Reason: domain.RetireFailed}, true

	case domain.StatusQueued, domain.StatusDownloading:
		entry.Status = snapshot.Status
		entry.BytesDownloaded = snapshot.BytesDownloaded
		if snapshot.TotalBytes > 0 {
			totalChanged := snapshot.TotalBytes != entry.TotalBytes
			entry.TotalBytes = snapshot.TotalBytes

			if snapshot.BytesDownloaded > 0 {
				progress := int(snapshot.BytesDownloaded * 100 / snapshot.TotalBytes)
				if progress > 100 {
					progress = 100
				}
				// Progress never goes backwards unless the total itself
				// was corrected.
				if totalChanged || progress > entry.Progress {
					entry.Progress = progress
				}

				// Convergence rule: full byte count counts as completed
				// even while the status field lags behind.
				if entry.Progress >= 100 {
					entry.Status = domain.StatusCompleted
					delete(r.entries, id)
					return domain.Retirement{Info: entry, Reason: domain.RetireCompleted}, true
				}
			}
		}
		r.entries[id] = entry
		return domain.Retirement{}, false

	default:
		// Transfer vanished or the subsystem reported something we do not
		// recognize; either way it is no longer active.
		entry.Status = domain.StatusUnknown
		delete(r.entries, id)
		return domain.Retirement{Info: entry, Reason: domain.RetireUnknown}, true
	}
}

func (r *Registry) emitRetirement(ret domain.Retirement) {
	r.mu.Lock()
	fns := make([]func(domain.Retirement), len(r.retiredFns))
	copy(fns, r.retiredFns)
	r.mu.Unlock()

	r.logger.Info("Download retired",
		zap.Int64("id", ret.Info.ID),
		zap.String("name", ret.Info.Name),
		zap.String("reason", string(ret.Reason)),
		zap.Error(ret.Err))

	for _, fn := range fns {
		fn(ret)
	}
}

func (r *Registry) publishSnapshot() {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotLocked()
	for _, ch := range r.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
