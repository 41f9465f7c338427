package models

import "time"

// SentinelCommentID identifies the placeholder record produced for a
// document without comments.
const SentinelCommentID = "no-comments"

// Comment is one reviewer comment pulled out of a Word document together with
// the reply drafted for it.
type Comment struct {
	ID       string    `json:"id"`
	Author   string    `json:"author"`
	Initials string    `json:"initials,omitempty"`
	Date     time.Time `json:"date"`
	Text     string    `json:"text"`
	Context  string    `json:"context"`
	Response string    `json:"response"`
	// Error holds the last generation failure for this comment.
	Error    string `json:"error,omitempty"`
	Sentinel bool   `json:"sentinel,omitempty"`
}

// HasResponse reports whether the comment carries a reply worth exporting.
func (c Comment) HasResponse() bool {
	if c.Sentinel {
		return false
	}
	for _, r := range c.Response {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}

// CloneComments copies the slice so callers can mutate it freely.
func CloneComments(in []Comment) []Comment {
	if in == nil {
		return nil
	}
	out := make([]Comment, len(in))
	copy(out, in)
	return out
}
