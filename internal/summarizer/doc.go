// Package summarizer asks a chat-completion model to describe an event page.
//
// The model's answer is untrusted text. ParseSummary accepts it only when it
// decodes to the exact summary shape with tags and status drawn from the
// event vocabularies, trying the whole message first, then the first fenced
// code block, then the outermost brace span. Anything else, including every
// request failure, becomes the empty summary so a single bad answer never
// stops a run.
package summarizer
