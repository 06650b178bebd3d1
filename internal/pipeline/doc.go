// Package pipeline drives events through the fetch and summarize stages.
//
// Items are processed one at a time in overview order. After every item the
// stage's output file is rewritten in full, so an interrupted run leaves a
// valid file holding everything finished so far. Between items the pipeline
// waits for the configured pacing delay, returning early if the context is
// cancelled.
package pipeline
