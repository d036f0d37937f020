/*
Package session orchestrates editing sessions.

Each session owns a working component: the one body and stylesheet that every
render, export and save reads from. Chat turns, property edits and manual
code edits all funnel into it under a per-session lock, so concurrent clients
cannot interleave half-applied changes.

Chat turns run the full pipeline: generate, normalize, validate, and only
then commit. A rejected generation never touches the working component; the
model's raw output still lands in the transcript, which is an audit log of
what was said, not of what was accepted.

Style edits append override rules to the stylesheet and rebuild the preview
once. Text edits skip the rebuild entirely: they update the server-side
mirror and push the new text to live previews. Saves are debounced so a burst
of edits becomes one write.
*/
package session
