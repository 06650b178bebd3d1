// Package cli implements the command-line interface for eventscout.
//
// The cli package provides the Cobra-based CLI with one subcommand per pipeline
// stage (overview, fetch, summarize), a fused run command, a diagnostic list of
// the finished records (text or JSON, sortable by id, date or name) and exports
// to SQLite and iCalendar. It loads configuration, sets up logging and metrics,
// and coordinates the scraper, summarizer, pipeline and storage packages.
package cli
