package renderer

import (
	"strings"
	"text/template"
)

// DocumentConfig pins the runtime scripts the render document loads. The
// defaults point at the public CDN; the server normally rewrites them to its
// own asset routes so renders do not depend on third-party uptime.
type DocumentConfig struct {
	ReactURL    string
	ReactDOMURL string
	BabelURL    string
}

// DefaultDocumentConfig returns the CDN-backed script set.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		ReactURL:    "https://unpkg.com/react@18/umd/react.development.js",
		ReactDOMURL: "https://unpkg.com/react-dom@18/umd/react-dom.development.js",
		BabelURL:    "https://unpkg.com/@babel/standalone/babel.min.js",
	}
}

// documentTmpl is the full sandbox document. Everything the component needs
// lives inside it: the runtime scripts, the stylesheet, the fault barrier,
// and the selection bridge. The embedding page only relays messages.
var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
*::-webkit-scrollbar {
  display: none;
}
* {
  scrollbar-width: none;
  -ms-overflow-style: none;
}
body {
  margin: 0;
  padding: 0;
  overflow-x: hidden;
}
{{.Style}}
</style>
<script src="{{.ReactURL}}"></script>
<script src="{{.ReactDOMURL}}"></script>
<script src="{{.BabelURL}}"></script>
</head>
<body>
<div id="root"></div>
<script type="text/babel">
try {
{{.Body}}
if (typeof Component === "function") {
  window.Component = Component;
  const root = ReactDOM.createRoot(document.getElementById('root'));
  root.render(React.createElement(window.Component));
} else {
  document.getElementById('root').innerHTML = "<p style='color:red'>Error: Component() function not found.</p>";
}
} catch (err) {
  document.getElementById('root').innerHTML = "<pre style='color:red'>Runtime Error: " + err.message + "</pre>";
}
</script>
<script>
document.getElementById('root').onclick = function(e) {
  e.preventDefault();
  e.stopPropagation();
  const el = e.target;
  let selector = '';
  if (el.id) selector = '#' + el.id;
  else if (el.className) selector = '.' + el.className.split(' ').join('.');
  else selector = el.tagName.toLowerCase();
  window.parent.postMessage({
    type: 'element-select',
    selector: selector,
    tag: el.tagName,
    className: el.className,
    id: el.id,
    text: el.innerText
  }, '*');
};
window.addEventListener('message', function(event) {
  if (event.data && event.data.type === 'update-element-text') {
    var el = document.querySelector(event.data.selector);
    if (el) el.innerText = event.data.text;
  }
});
</script>
</body>
</html>
`))

type documentData struct {
	DocumentConfig
	Body  string
	Style string
}

// BuildDocument renders the sandbox document for a component. Body must be
// normalized JSX; Style is embedded verbatim so appended override rules keep
// their order.
func BuildDocument(config DocumentConfig, body, style string) (string, error) {
	var b strings.Builder
	err := documentTmpl.Execute(&b, documentData{
		DocumentConfig: config,
		Body:           body,
		Style:          style,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
