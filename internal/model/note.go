package model

import "time"

// TimestampLayout is how note timestamps are shown to people, both in the
// HTML feed and in `notes list`.
const TimestampLayout = "2006-01-02 15:04"

// Note is a short timestamped text posted by a User.
//
// Timestamp is set by the server when the note is written, never taken from
// the client. Notes are never edited; they either exist or have been deleted.
type Note struct {
	ID        string    `json:"id"        yaml:"id"        db:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp" db:"timestamp"`
	Content   string    `json:"content"   yaml:"content"   db:"content"`
	AuthorID  string    `json:"authorId"  yaml:"authorId"  db:"author_id"`
}

// FeedEntry is a Note joined with the fields of its author that the feed
// displays.
type FeedEntry struct {
	Note       `yaml:",inline"`
	AuthorName string `json:"authorName" yaml:"authorName"`
}

// RenderedTimestamp formats the timestamp with TimestampLayout.
func (n *Note) RenderedTimestamp() string {
	return n.Timestamp.Format(TimestampLayout)
}
