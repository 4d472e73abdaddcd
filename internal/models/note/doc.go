// Package note contains read access to the MongoDB notes collection.
// The NoteManager is used to check whether a user still has notes before the user may be deleted.
package note
