package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// EventKind classifies a filesystem change delivered by the watcher.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventModified EventKind = "modified"
	EventMoved    EventKind = "moved"
	EventDeleted  EventKind = "deleted"
)

// FileEvent is one change notification for the watched directory.
// DestPath is only set for EventMoved.
type FileEvent struct {
	Kind        EventKind `json:"kind"`
	SrcPath     string    `json:"src_path"`
	DestPath    string    `json:"dest_path,omitempty"`
	IsDirectory bool      `json:"is_directory"`
}

func (e FileEvent) String() string {
	if e.Kind == EventMoved {
		return fmt.Sprintf("FileEvent{kind=%s src=%s dest=%s dir=%t}", e.Kind, e.SrcPath, e.DestPath, e.IsDirectory)
	}
	return fmt.Sprintf("FileEvent{kind=%s src=%s dir=%t}", e.Kind, e.SrcPath, e.IsDirectory)
}

// Hash returns the md5 hex digest of String(). It only correlates log lines.
func (e FileEvent) Hash() string {
	sum := md5.Sum([]byte(e.String()))
	return hex.EncodeToString(sum[:])
}

// Filename is the base name of SrcPath.
func (e FileEvent) Filename() string {
	return filepath.Base(e.SrcPath)
}

// DestFilename is the base name of DestPath, or "" when the event is not a move.
func (e FileEvent) DestFilename() string {
	if e.DestPath == "" {
		return ""
	}
	return filepath.Base(e.DestPath)
}
