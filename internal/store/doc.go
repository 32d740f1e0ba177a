// Package store holds the in-memory job store that owns every job record's
// lifecycle, and the persistence interfaces (character profiles) that
// abstract the underlying storage mechanism from the application's core
// logic.
package store
