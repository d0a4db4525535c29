// Package notes implements the note service: create, edit, delete and
// list operations on behalf of an explicit acting user.
package notes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mkraev/yanote/internal/db"
	"github.com/mkraev/yanote/internal/errs"
	"github.com/mkraev/yanote/internal/slug"
)

// Service orchestrates note operations over the store. Every method
// takes the acting user's id explicitly; there is no ambient identity.
type Service struct {
	store *db.Store
}

// NewService creates a note service backed by the given store.
func NewService(store *db.Store) *Service {
	return &Service{store: store}
}

var errNoteNotFound = errs.New(errs.NotFound, "note not found")

// fallbackSlug is stored when a title transliterates to nothing, e.g.
// a title consisting only of sign characters ("Ъ") or punctuation. The
// unique index still applies, so a second such note asks the user for
// an explicit slug via the usual duplicate warning.
const fallbackSlug = "note"

// deriveSlug produces the slug for a note whose form left the slug
// field empty.
func deriveSlug(title string) string {
	if derived := slug.Normalize(title); derived != "" {
		return derived
	}
	return fallbackSlug
}

// Create validates the form, derives a slug when none was supplied and
// persists a note owned by authorID. A duplicate slug comes back as a
// *FieldError on the slug field with the colliding slug embedded in the
// message; the store is left untouched in that case.
func (s *Service) Create(ctx context.Context, authorID string, p CreateParams) (*Note, error) {
	if authorID == "" {
		return nil, errs.New(errs.InvalidArgument, "acting user is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, &FieldError{Field: "title", Message: "title is required"}
	}

	noteSlug := p.Slug
	if noteSlug == "" {
		noteSlug = deriveSlug(p.Title)
	}
	if ferr := validateSlug(noteSlug); ferr != nil {
		return nil, ferr
	}

	record, err := s.store.CreateNote(ctx, db.CreateNoteParams{
		Title:     p.Title,
		Text:      p.Text,
		Slug:      noteSlug,
		AuthorID:  authorID,
		CreatedAt: time.Now().Unix(),
	})
	if errors.Is(err, db.ErrDuplicateSlug) {
		return nil, &FieldError{Field: "slug", Message: noteSlug + DuplicateSlugWarning}
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to create note", err)
	}

	return fromRecord(record), nil
}

// Get resolves a note by slug on behalf of userID. A missing note and a
// note owned by someone else both come back as the same not-found
// error.
func (s *Service) Get(ctx context.Context, userID, noteSlug string) (*Note, error) {
	record, err := s.store.GetNoteBySlug(ctx, noteSlug)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNoteNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to read note", err)
	}

	note := fromRecord(record)
	if !CanAccess(userID, note) {
		return nil, errNoteNotFound
	}
	return note, nil
}

// Edit replaces title, text and slug of the note identified by
// noteSlug. Denial by the ownership guard is indistinguishable from a
// missing note. The author never changes.
func (s *Service) Edit(ctx context.Context, userID, noteSlug string, p UpdateParams) (*Note, error) {
	note, err := s.Get(ctx, userID, noteSlug)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, &FieldError{Field: "title", Message: "title is required"}
	}

	newSlug := p.Slug
	if newSlug == "" {
		newSlug = deriveSlug(p.Title)
	}
	if ferr := validateSlug(newSlug); ferr != nil {
		return nil, ferr
	}

	record, err := s.store.UpdateNote(ctx, note.ID, db.UpdateNoteParams{
		Title: p.Title,
		Text:  p.Text,
		Slug:  newSlug,
	})
	if errors.Is(err, db.ErrDuplicateSlug) {
		return nil, &FieldError{Field: "slug", Message: newSlug + DuplicateSlugWarning}
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNoteNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to update note", err)
	}

	return fromRecord(record), nil
}

// Delete removes the note identified by noteSlug. Denial by the
// ownership guard is indistinguishable from a missing note.
func (s *Service) Delete(ctx context.Context, userID, noteSlug string) error {
	note, err := s.Get(ctx, userID, noteSlug)
	if err != nil {
		return err
	}

	if err := s.store.DeleteNote(ctx, note.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return errNoteNotFound
		}
		return errs.Wrap(errs.Internal, "failed to delete note", err)
	}
	return nil
}

// List returns userID's notes in creation order (ascending id). Other
// users' notes are never included.
func (s *Service) List(ctx context.Context, userID string) ([]Note, error) {
	records, err := s.store.ListNotesForAuthor(ctx, userID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to list notes", err)
	}

	notes := make([]Note, 0, len(records))
	for i := range records {
		notes = append(notes, *fromRecord(&records[i]))
	}
	return notes, nil
}

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateSlug checks the slug's format and length. Derived slugs pass
// by construction; this guards user-supplied values.
func validateSlug(s string) *FieldError {
	if len(s) > slug.MaxLength {
		return &FieldError{Field: "slug", Message: fmt.Sprintf("slug must be at most %d characters", slug.MaxLength)}
	}
	if !slugPattern.MatchString(s) {
		return &FieldError{Field: "slug", Message: "slug may only contain letters, numbers, hyphens and underscores"}
	}
	return nil
}

func fromRecord(r *db.NoteRecord) *Note {
	return &Note{
		ID:        r.ID,
		Title:     r.Title,
		Text:      r.Text,
		Slug:      r.Slug,
		AuthorID:  r.AuthorID,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}
