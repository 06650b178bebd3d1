// Package event provides the data model shared by every stage of the pipeline.
//
// A Stub is parsed from the saved calendar listing, a ContentRecord adds the
// fetched page text and its JSON-LD metadata, and a Record merges the content
// with a language-model Summary into the shape the web front-end loads. The
// ID of an event is its 1-based position in the listing and never changes
// between stages.
package event
