/*
Package http exposes the REST surface of the backend.

Routes split into three groups: public (root, health, signup, login,
runtime assets), authenticated (session CRUD and edit operations, scoped
to the requesting user), and the preview document, which is public so the
sandboxed iframe can load it without credentials.
*/
package http
