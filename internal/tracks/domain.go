package tracks

import "time"

// Track is a short post on a user's profile. CreatedAt is not stored; it is
// embedded in the id.
type Track struct {
	ID       int64      `json:"id"`
	AuthorID int64      `json:"author_id"`
	Content  string     `json:"content"`
	Bucket   int64      `json:"-"`
	EditedAt *time.Time `json:"edited_at"`
}

// MaxContentLength bounds track content; the minimum is one character.
const MaxContentLength = 2048
