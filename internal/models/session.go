package models

import "time"

// SessionStatus tracks where an uploaded document is in the
// analyze → generate → review flow.
type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionAnalyzing  SessionStatus = "analyzing"
	SessionGenerating SessionStatus = "generating"
	SessionComplete   SessionStatus = "complete"
)

// Session is one uploaded document under review. Original is never sent
// back to the client.
type Session struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Size        int64         `json:"size"`
	Status      SessionStatus `json:"status"`
	Comments    []Comment     `json:"comments"`
	NeedsAPIKey bool          `json:"needs_api_key"`
	Original    []byte        `json:"-"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Clone returns a copy whose comment slice is independent of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Comments = CloneComments(s.Comments)
	return &cp
}
