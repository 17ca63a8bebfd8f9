// Package history keeps past generations on disk so they can be listed,
// replayed, exported and deleted. Audio is stored as WAV, zstd compressed
// when that helps, next to a gob index of generation records.
package history
