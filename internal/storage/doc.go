// Package storage provides JSON-file persistence for the pipeline stages.
//
// Each stage owns one file holding a JSON array: event overviews (stubs parsed from
// the listing), event contents (fetched page text plus structured data) and event
// details (the merged records the front-end loads). Files are always rewritten in
// full; a write goes to a temporary file that is renamed over the target, so readers
// only ever see the previous complete array or the new one.
package storage
