// Package types holds the data structures shared across the backend:
// session records, chat history, the working component, and the element
// selection protocol.
package types
