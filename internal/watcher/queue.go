package watcher

import (
	"time"

	"github.com/aleister1102/imgsync/internal/models"
)

type pendingItem struct {
	ev      models.FileEvent
	readyAt time.Time
	// rename marks an unpaired Rename waiting for its Create
	rename bool
	// unreported is set when the renamed file was never delivered
	unreported bool
	// dirty is set when the renamed file had an undelivered write
	dirty bool
}

// eventQueue turns raw filesystem operations into FileEvents. Items are
// released strictly in arrival order; an item that is not ready yet holds
// back everything behind it.
type eventQueue struct {
	debounce   time.Duration
	moveWindow time.Duration
	items      []*pendingItem
	byPath     map[string]*pendingItem
}

func newEventQueue(debounce, moveWindow time.Duration) *eventQueue {
	return &eventQueue{
		debounce:   debounce,
		moveWindow: moveWindow,
		byPath:     make(map[string]*pendingItem),
	}
}

func (q *eventQueue) Len() int {
	return len(q.items)
}

// touch records a Create or Write for path, restarting its quiet period
func (q *eventQueue) touch(path string, kind models.EventKind, now time.Time) {
	if item, ok := q.byPath[path]; ok {
		item.readyAt = now.Add(q.debounce)
		return
	}
	item := &pendingItem{
		ev:      models.FileEvent{Kind: kind, SrcPath: path},
		readyAt: now.Add(q.debounce),
	}
	q.items = append(q.items, item)
	q.byPath[path] = item
}

// created handles a Create for a regular file. It pairs with a pending
// rename when one is still inside the move window.
func (q *eventQueue) created(path string, now time.Time) {
	if item := q.openRename(now); item != nil {
		item.rename = false
		if item.unreported {
			item.unreported = false
			item.ev = models.FileEvent{Kind: models.EventCreated, SrcPath: path}
			item.readyAt = now.Add(q.debounce)
			q.byPath[path] = item
			return
		}
		item.ev = models.FileEvent{Kind: models.EventMoved, SrcPath: item.ev.SrcPath, DestPath: path}
		item.readyAt = now
		if item.dirty {
			item.dirty = false
			q.touch(path, models.EventModified, now)
		}
		return
	}
	q.touch(path, models.EventCreated, now)
}

// renamed handles the source side of a rename. A pending write moves
// with the file and is delivered for the destination after the Moved.
func (q *eventQueue) renamed(path string, now time.Time) {
	unreported, dirty := false, false
	if item, ok := q.byPath[path]; ok {
		unreported = item.ev.Kind == models.EventCreated
		dirty = item.ev.Kind == models.EventModified
		q.drop(item)
	}
	q.items = append(q.items, &pendingItem{
		ev:         models.FileEvent{Kind: models.EventDeleted, SrcPath: path},
		readyAt:    now.Add(q.moveWindow),
		rename:     true,
		unreported: unreported,
		dirty:      dirty,
	})
}

// removed handles a Remove. A file created and removed inside one quiet
// period produces nothing.
func (q *eventQueue) removed(path string, now time.Time) {
	if item, ok := q.byPath[path]; ok {
		q.drop(item)
		if item.ev.Kind == models.EventCreated {
			return
		}
	}
	q.push(models.FileEvent{Kind: models.EventDeleted, SrcPath: path}, now)
}

// push queues an event that is ready immediately
func (q *eventQueue) push(ev models.FileEvent, now time.Time) {
	q.items = append(q.items, &pendingItem{ev: ev, readyAt: now})
}

// ready pops the events releasable at now
func (q *eventQueue) ready(now time.Time) []models.FileEvent {
	var out []models.FileEvent
	for len(q.items) > 0 && !q.items[0].readyAt.After(now) {
		item := q.items[0]
		q.items = q.items[1:]
		if q.byPath[item.ev.SrcPath] == item {
			delete(q.byPath, item.ev.SrcPath)
		}
		if item.rename && item.unreported {
			continue
		}
		out = append(out, item.ev)
	}
	return out
}

// next is the time the head item becomes ready
func (q *eventQueue) next() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].readyAt, true
}

func (q *eventQueue) openRename(now time.Time) *pendingItem {
	for i := len(q.items) - 1; i >= 0; i-- {
		item := q.items[i]
		if item.rename && item.readyAt.After(now) {
			return item
		}
	}
	return nil
}

func (q *eventQueue) drop(target *pendingItem) {
	for i, item := range q.items {
		if item == target {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	if q.byPath[target.ev.SrcPath] == target {
		delete(q.byPath, target.ev.SrcPath)
	}
}
