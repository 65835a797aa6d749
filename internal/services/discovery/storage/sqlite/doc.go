// Package sqlite provides the preload store backed by SQLite.
//
// Entries are derived prerender output; losing the database only costs a
// network fetch on the next request.
package sqlite
