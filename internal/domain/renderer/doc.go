/*
Package renderer turns normalized component code into the sandboxed document
served to clients, and keeps a server-side mirror of the rendered tree.

The document is self-contained: runtime scripts, stylesheet, a fault barrier
around the component, a click interceptor that reports element selections to
the embedding page, and a listener that applies live text updates. The
embedding page never evaluates component code itself.

Before a document is handed out, the component body runs once in a goja
preflight (see the sandbox subpackage). That run catches reference errors and
missing Component declarations server-side and produces the element mirror
used to resolve selectors without asking the browser.
*/
package renderer
