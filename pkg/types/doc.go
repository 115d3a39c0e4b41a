// Package types defines the shared Go types produced by the off-page engine
// and held by the session store. They are the canonical in-memory
// representation of an analysis and double as the JSON wire shape of the
// REST API and websocket stream.
package types
