// Package providers groups the backend's external capabilities.
//
// Each subpackage wraps one outside concern behind a small API:
//   - ai: component generation and session naming via the chat completion API
//   - auth: account registration and bearer-token sessions
//   - export: packaging the working component for download
//
// Providers own their failure behavior. The AI provider degrades into a
// commented error body instead of returning an error; auth collapses all
// login failures into one; export has no external dependency at all.
package providers
