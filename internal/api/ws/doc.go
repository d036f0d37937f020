/*
Package ws bridges editor pages and live previews.

Each session has one channel. Hosts (editor pages) join with a bearer token;
previews join with the session's channel key. Between the two roles the
vocabulary is deliberately tiny: previews may only report element-select,
hosts may only send update-element-text. Anything else is dropped, which
keeps a compromised preview frame from speaking to the editor in any other
way. Text crossing the bridge is sanitized on the server.

The backend itself pushes three notices to hosts: session-name-updated,
component-updated, and update-element-text for live text edits.
*/
package ws
