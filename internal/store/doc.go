// Package store holds sessions and the analyses they own in memory. One
// coarse lock guards both tables so a sweep can never interleave with a
// save or delete. Nothing is persisted across restarts.
package store
