package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fantaasta/auction/internal/domain"
)

const (
	archiveQueueSize = 128
	archiveTimeout   = 5 * time.Second
)

// ResultStore is the persistence the archiver writes through.
// Implemented by ResultRepository.
type ResultStore interface {
	Insert(ctx context.Context, row ResultRow) error
	MarkDeleted(ctx context.Context, session uuid.UUID, id int64, at time.Time) error
}

type archiveJob struct {
	row     ResultRow
	deleted bool
	at      time.Time
}

// ResultArchiver records committed and reversed results off the auction's
// hot path.  Record* calls only enqueue; Run performs the writes.  When the
// queue is full the record is dropped and logged: the archive is an audit
// trail, never the source of truth.
type ResultArchiver struct {
	store   ResultStore
	session uuid.UUID
	queue   chan archiveJob
	logger  *slog.Logger
}

// NewResultArchiver creates an archiver tagging rows with a fresh session id.
func NewResultArchiver(store ResultStore, logger *slog.Logger) *ResultArchiver {
	return &ResultArchiver{
		store:   store,
		session: uuid.New(),
		queue:   make(chan archiveJob, archiveQueueSize),
		logger:  logger,
	}
}

// Session identifies this server run in the archive.
func (a *ResultArchiver) Session() uuid.UUID { return a.session }

// RecordConfirmed queues an insert for a committed result.
func (a *ResultArchiver) RecordConfirmed(entry domain.HistoryEntry) {
	a.enqueue(archiveJob{row: NewResultRow(a.session, entry)})
}

// RecordDeleted queues the reversal of a committed result.
func (a *ResultArchiver) RecordDeleted(entry domain.HistoryEntry) {
	a.enqueue(archiveJob{row: NewResultRow(a.session, entry), deleted: true, at: time.Now().UTC()})
}

func (a *ResultArchiver) enqueue(job archiveJob) {
	select {
	case a.queue <- job:
	default:
		a.logger.Warn("archive queue full, record dropped", "id", job.row.ID, "deleted", job.deleted)
	}
}

// Run writes queued records until ctx is cancelled, then flushes whatever is
// still queued.  Call it once as a goroutine.
func (a *ResultArchiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case job := <-a.queue:
			a.write(ctx, job)
		}
	}
}

func (a *ResultArchiver) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	for {
		select {
		case job := <-a.queue:
			a.write(ctx, job)
		default:
			return
		}
	}
}

func (a *ResultArchiver) write(parent context.Context, job archiveJob) {
	ctx, cancel := context.WithTimeout(parent, archiveTimeout)
	defer cancel()

	var err error
	if job.deleted {
		err = a.store.MarkDeleted(ctx, job.row.SessionID, job.row.ID, job.at)
	} else {
		err = a.store.Insert(ctx, job.row)
	}
	if err != nil {
		a.logger.Error("archive write failed", "id", job.row.ID, "deleted", job.deleted, "err", err)
	}
}
