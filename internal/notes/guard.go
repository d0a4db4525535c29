package notes

// CanAccess reports whether userID may view, edit or delete the note.
// The answer is a plain bool so callers pick the externally visible
// failure mode: the service turns a denial into "not found" rather than
// "forbidden", never confirming the note's existence to non-owners.
func CanAccess(userID string, note *Note) bool {
	return note != nil && note.AuthorID == userID
}
