package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// NoteRecord is a row in the notes table.
type NoteRecord struct {
	ID        int64
	Title     string
	Text      string
	Slug      string
	AuthorID  string
	CreatedAt int64
}

// CreateNoteParams are the fields for a new note.
type CreateNoteParams struct {
	Title     string
	Text      string
	Slug      string
	AuthorID  string
	CreatedAt int64
}

// CreateNote inserts a note and returns it with its assigned id.
// Returns ErrDuplicateSlug when the slug is already taken; the unique
// index makes this race-free under concurrent creates.
func (s *Store) CreateNote(ctx context.Context, p CreateNoteParams) (*NoteRecord, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (title, text, slug, author_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.Title, p.Text, p.Slug, p.AuthorID, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("note insert id: %w", err)
	}

	return &NoteRecord{
		ID:        id,
		Title:     p.Title,
		Text:      p.Text,
		Slug:      p.Slug,
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
	}, nil
}

// UpdateNoteParams are the replacement field values for an edit.
// The author is deliberately absent: no statement ever changes it.
type UpdateNoteParams struct {
	Title string
	Text  string
	Slug  string
}

// UpdateNote replaces title, text and slug in a single statement, so an
// edit is all-or-nothing. Returns ErrNotFound when id does not exist and
// ErrDuplicateSlug when the new slug belongs to a different note.
func (s *Store) UpdateNote(ctx context.Context, id int64, p UpdateNoteParams) (*NoteRecord, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, text = ?, slug = ? WHERE id = ?`,
		p.Title, p.Text, p.Slug, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("update note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update note rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetNote(ctx, id)
}

// DeleteNote removes a note by id.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNote fetches a note by id.
func (s *Store) GetNote(ctx context.Context, id int64) (*NoteRecord, error) {
	return s.scanNote(s.db.QueryRowContext(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes WHERE id = ?`, id))
}

// GetNoteBySlug fetches a note by its slug (case-sensitive exact match).
func (s *Store) GetNoteBySlug(ctx context.Context, slug string) (*NoteRecord, error) {
	return s.scanNote(s.db.QueryRowContext(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes WHERE slug = ?`, slug))
}

// ListNotesForAuthor returns the author's notes ordered by ascending id,
// which is creation order. Other users' notes are never included.
func (s *Store) ListNotesForAuthor(ctx context.Context, authorID string) ([]NoteRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes WHERE author_id = ? ORDER BY id ASC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteRecord
	for rows.Next() {
		var n NoteRecord
		if err := rows.Scan(&n.ID, &n.Title, &n.Text, &n.Slug, &n.AuthorID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// CountNotes returns the total number of stored notes.
func (s *Store) CountNotes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

func (s *Store) scanNote(row *sql.Row) (*NoteRecord, error) {
	var n NoteRecord
	err := row.Scan(&n.ID, &n.Title, &n.Text, &n.Slug, &n.AuthorID, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return &n, nil
}
