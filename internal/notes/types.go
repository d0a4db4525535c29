package notes

import (
	"fmt"
	"time"
)

// DuplicateSlugWarning is the fixed suffix appended to the colliding
// slug in duplicate-slug validation messages. The literal text is part
// of the user-visible contract.
const DuplicateSlugWarning = " - такой slug уже существует, придумайте уникальное значение!"

// Note is one user-authored note.
type Note struct {
	ID        int64
	Title     string
	Text      string
	Slug      string
	AuthorID  string
	CreatedAt time.Time
}

// CreateParams are the form fields for a new note. Slug may be empty,
// in which case it is derived from the title.
type CreateParams struct {
	Title string
	Text  string
	Slug  string
}

// UpdateParams are the form fields for an edit. Slug may be empty, in
// which case it is derived from the (new) title.
type UpdateParams struct {
	Title string
	Text  string
	Slug  string
}

// FieldError is a validation failure tied to a single form field. The
// web layer re-renders the form with the message instead of failing the
// request.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
