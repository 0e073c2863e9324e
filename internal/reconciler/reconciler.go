// Package reconciler turns file events into registry, transfer and
// notification calls, one event at a time.
package reconciler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/metrics"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/aleister1102/imgsync/internal/notifier"
	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
)

// ShortcodeLength is the number of shortuuid characters kept
const ShortcodeLength = 8

// Registry is the shortcode registry
type Registry interface {
	Lookup(ctx context.Context, filename string) (*models.Assignment, error)
	Create(ctx context.Context, a models.Assignment) error
	Update(ctx context.Context, a models.Assignment) error
	Delete(ctx context.Context, shortcode string) error
	ShortcodeURL(shortcode string) string
}

// Transfer mirrors files to the remote directory
type Transfer interface {
	Put(ctx context.Context, localPath, remoteDir string) error
	Remove(ctx context.Context, remoteName, remoteDir string) error
	Rename(ctx context.Context, oldName, newName, remoteDir string) error
}

// Notifications fans announcements out to every backend
type Notifications interface {
	NotifyAll(ctx context.Context, msg notifier.Message) error
	EditAll(ctx context.Context, msg notifier.Message) error
	DeleteAll(ctx context.Context, shortcode string) error
}

// Journal stores outcomes. Optional.
type Journal interface {
	Record(ctx context.Context, o models.SyncOutcome) (int64, error)
}

// Deps are the collaborators of a Reconciler
type Deps struct {
	Registry      Registry
	Transfer      Transfer
	Notifications Notifications
	Journal       Journal
	RemoteDir     string
	// NewShortcode defaults to NewShortcode
	NewShortcode func() string
	// Now defaults to time.Now
	Now func() time.Time
}

// Stats summarises processed events
type Stats struct {
	Processed   int64
	Failed      int64
	LastEventAt time.Time
}

// Reconciler processes events sequentially. Handle must not be called concurrently.
type Reconciler struct {
	deps      Deps
	logger    zerolog.Logger
	processed atomic.Int64
	failed    atomic.Int64
	lastEvent atomic.Int64
}

// New creates a Reconciler
func New(deps Deps, logger zerolog.Logger) *Reconciler {
	if deps.NewShortcode == nil {
		deps.NewShortcode = NewShortcode
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Reconciler{
		deps:   deps,
		logger: logger.With().Str("module", "reconciler").Logger(),
	}
}

// NewShortcode returns the first ShortcodeLength characters of a shortuuid
func NewShortcode() string {
	return shortuuid.New()[:ShortcodeLength]
}

// Stats is safe to call from any goroutine
func (r *Reconciler) Stats() Stats {
	s := Stats{
		Processed: r.processed.Load(),
		Failed:    r.failed.Load(),
	}
	if ns := r.lastEvent.Load(); ns != 0 {
		s.LastEventAt = time.Unix(0, ns)
	}
	return s
}

// Run handles events until the channel closes or ctx is cancelled. An
// event already being handled runs to completion on a detached context.
func (r *Reconciler) Run(ctx context.Context, events <-chan models.FileEvent) {
	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Handle(work, ev)
		}
	}
}

// Handle processes one event to completion and reports what happened
func (r *Reconciler) Handle(ctx context.Context, ev models.FileEvent) models.SyncOutcome {
	out := &models.SyncOutcome{
		EventHash: ev.Hash(),
		Kind:      ev.Kind,
		SrcPath:   ev.SrcPath,
		DestPath:  ev.DestPath,
		StartedAt: r.deps.Now(),
	}
	log := r.logger.With().
		Str("kind", string(ev.Kind)).
		Str("path", ev.SrcPath).
		Str("hash", out.EventHash).
		Logger()

	if ev.IsDirectory {
		out.Status = models.StatusIgnored
		out.FinishedAt = r.deps.Now()
		log.Debug().Msg("Ignoring directory event")
		return *out
	}

	switch ev.Kind {
	case models.EventCreated, models.EventModified:
		r.upsert(ctx, ev, out, log)
	case models.EventMoved:
		r.move(ctx, ev, out, log)
	case models.EventDeleted:
		r.delete(ctx, ev, out, log)
	default:
		out.Status = models.StatusIgnored
		log.Warn().Msg("Unknown event kind")
	}

	r.finish(ctx, out, log)
	return *out
}

func (r *Reconciler) upsert(ctx context.Context, ev models.FileEvent, out *models.SyncOutcome, log zerolog.Logger) {
	filename := ev.Filename()

	existing, err := r.deps.Registry.Lookup(ctx, filename)
	if err != nil {
		fail(out, models.StatusFailed, "lookup", err)
		return
	}
	if existing == nil {
		r.create(ctx, filename, ev.SrcPath, out, log)
		return
	}

	out.Shortcode = existing.Shortcode
	if err := r.deps.Registry.Update(ctx, models.Assignment{Shortcode: existing.Shortcode, Filename: filename}); err != nil {
		fail(out, models.StatusFailed, "update", err)
		return
	}
	if err := r.deps.Transfer.Put(ctx, ev.SrcPath, r.deps.RemoteDir); err != nil {
		fail(out, models.StatusPartial, "put", err)
		return
	}
	out.Status = models.StatusUpdated
}

// create assigns a fresh shortcode to filename, uploads localPath and
// announces it. A failed upload does not stop the announcement.
func (r *Reconciler) create(ctx context.Context, filename, localPath string, out *models.SyncOutcome, log zerolog.Logger) {
	code := r.deps.NewShortcode()
	out.Shortcode = code

	if err := r.deps.Registry.Create(ctx, models.Assignment{Shortcode: code, Filename: filename}); err != nil {
		if errors.Is(err, common.ErrConflict) {
			log.Warn().Str("shortcode", code).Msg("Shortcode already taken, abandoning event")
		}
		fail(out, models.StatusFailed, "create", err)
		return
	}

	if err := r.deps.Transfer.Put(ctx, localPath, r.deps.RemoteDir); err != nil {
		fail(out, models.StatusPartial, "put", err)
	}

	msg := notifier.NewMessage(code, r.deps.Registry.ShortcodeURL(code), filename)
	if err := r.deps.Notifications.NotifyAll(ctx, msg); err != nil {
		fail(out, models.StatusPartial, "notify", err)
	}

	if out.Status == "" {
		out.Status = models.StatusCreated
	}
}

func (r *Reconciler) move(ctx context.Context, ev models.FileEvent, out *models.SyncOutcome, log zerolog.Logger) {
	srcName, destName := ev.Filename(), ev.DestFilename()

	existing, err := r.deps.Registry.Lookup(ctx, srcName)
	if err != nil {
		fail(out, models.StatusFailed, "lookup", err)
		return
	}
	if existing == nil {
		log.Info().Str("dest", ev.DestPath).Msg("Moved file has no shortcode, creating one for the destination")
		r.create(ctx, destName, ev.DestPath, out, log)
		return
	}

	code := existing.Shortcode
	out.Shortcode = code
	if err := r.deps.Registry.Update(ctx, models.Assignment{Shortcode: code, Filename: destName}); err != nil {
		fail(out, models.StatusFailed, "update", err)
		return
	}

	if err := r.deps.Transfer.Rename(ctx, srcName, destName, r.deps.RemoteDir); err != nil {
		fail(out, models.StatusPartial, "rename", err)
	}

	msg := notifier.NewMessage(code, r.deps.Registry.ShortcodeURL(code), destName)
	if err := r.deps.Notifications.EditAll(ctx, msg); err != nil {
		fail(out, models.StatusPartial, "edit", err)
	}

	if out.Status == "" {
		out.Status = models.StatusMoved
	}
}

func (r *Reconciler) delete(ctx context.Context, ev models.FileEvent, out *models.SyncOutcome, log zerolog.Logger) {
	filename := ev.Filename()

	existing, err := r.deps.Registry.Lookup(ctx, filename)
	if err != nil {
		fail(out, models.StatusFailed, "lookup", err)
		return
	}
	if existing == nil {
		out.Status = models.StatusIgnored
		log.Info().Msg("Deleted file has no shortcode, nothing to do")
		return
	}

	code := existing.Shortcode
	out.Shortcode = code
	if err := r.deps.Registry.Delete(ctx, code); err != nil {
		fail(out, models.StatusFailed, "delete", err)
		return
	}

	if err := r.deps.Transfer.Remove(ctx, filename, r.deps.RemoteDir); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warn().Err(err).Msg("Remote file already gone")
		} else {
			fail(out, models.StatusPartial, "remove", err)
		}
	}

	if err := r.deps.Notifications.DeleteAll(ctx, code); err != nil {
		fail(out, models.StatusPartial, "notify-delete", err)
	}

	if out.Status == "" {
		out.Status = models.StatusDeleted
	}
}

func (r *Reconciler) finish(ctx context.Context, out *models.SyncOutcome, log zerolog.Logger) {
	out.FinishedAt = r.deps.Now()

	r.processed.Add(1)
	r.lastEvent.Store(out.FinishedAt.UnixNano())
	if out.Failed() {
		r.failed.Add(1)
		log.Error().
			Str("shortcode", out.Shortcode).
			Str("status", string(out.Status)).
			Str("error", out.Error).
			Msg("Event failed")
	} else {
		log.Info().
			Str("shortcode", out.Shortcode).
			Str("status", string(out.Status)).
			Dur("duration", out.Duration()).
			Msg("Event processed")
	}
	metrics.RecordEvent(string(out.Kind), string(out.Status), out.Duration())

	if r.deps.Journal == nil {
		return
	}
	if _, err := r.deps.Journal.Record(ctx, *out); err != nil {
		log.Warn().Err(err).Msg("Failed to record sync outcome")
	}
}

// fail records a step error. A failed status wins over partial.
func fail(out *models.SyncOutcome, status models.SyncStatus, step string, err error) {
	msg := step + ": " + err.Error()
	if out.Error == "" {
		out.Error = msg
	} else {
		out.Error = strings.Join([]string{out.Error, msg}, "; ")
	}
	if out.Status != models.StatusFailed {
		out.Status = status
	}
}
