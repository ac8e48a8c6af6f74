// Package store keeps a catalogue of jobs and the files they produced in
// a SQLite database.
package store
