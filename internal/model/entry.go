package model

import "time"

// Entry is a single remote filesystem entry as returned by a listing.
type Entry struct {
	Name string
	// ModTime is optional, volumes and some servers don't report it.
	ModTime *time.Time
	// Size in bytes, only set for files.
	Size *int64
}

// Listing is the content of a remote directory.
type Listing struct {
	Dirs  []Entry
	Files []Entry
}
