package usecase

// NoteUpdate describes how an update treats the note: leave it as is, clear it, or replace it.
// The zero value leaves the note untouched.
type NoteUpdate struct {
	set   bool
	value *string
}

// KeepNote returns an update that does not touch the note.
func KeepNote() NoteUpdate {
	return NoteUpdate{}
}

// ClearNote returns an update that sets the note to null.
func ClearNote() NoteUpdate {
	return NoteUpdate{set: true}
}

// SetNote returns an update that replaces the note with s. An empty s is a valid note.
func SetNote(s string) NoteUpdate {
	return NoteUpdate{set: true, value: &s}
}

// IsSet reports whether the update changes the note.
func (u NoteUpdate) IsSet() bool {
	return u.set
}

// Value returns the new note; nil means null. It is meaningful only when IsSet is true.
func (u NoteUpdate) Value() *string {
	return u.value
}
