package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/codecraft-ai/backend/internal/domain/renderer/sandbox"
)

// Mirror is the server-side copy of the rendered element tree. It exists so
// the backend can answer selector questions (does this element still exist,
// what is its text) without a browser round trip.
type Mirror struct {
	doc *goquery.Document
}

// voidTags never carry children in serialized form.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// NewMirror serializes a recorded render tree and parses it back into a
// queryable document.
func NewMirror(root *sandbox.Node) (*Mirror, error) {
	var b strings.Builder
	writeNode(&b, root)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("parse mirror: %w", err)
	}
	return &Mirror{doc: doc}, nil
}

func writeNode(b *strings.Builder, n *sandbox.Node) {
	if n == nil {
		return
	}
	if n.IsText() {
		b.WriteString(html.EscapeString(n.Text))
		return
	}
	// Fragments are transparent containers.
	if strings.HasPrefix(n.Tag, "#") {
		for _, c := range n.Children {
			writeNode(b, c)
		}
		return
	}

	tag := strings.ToLower(n.Tag)
	b.WriteString("<")
	b.WriteString(tag)
	writeAttrs(b, n.Props)

	if voidTags[tag] {
		b.WriteString("/>")
		return
	}

	b.WriteString(">")
	for _, c := range n.Children {
		writeNode(b, c)
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
}

func writeAttrs(b *strings.Builder, props map[string]interface{}) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name, ok := attrName(k)
		if !ok {
			continue
		}
		switch v := props[k].(type) {
		case nil:
			continue
		case bool:
			if v {
				b.WriteString(" " + name)
			}
		case string:
			b.WriteString(" " + name + `="` + html.EscapeString(v) + `"`)
		case int64, float64:
			b.WriteString(" " + name + `="` + fmt.Sprint(v) + `"`)
		default:
			// Functions, style objects and other rich values have no
			// serialized form.
		}
	}
}

// attrName maps JSX prop names to their markup form and filters out event
// handlers.
func attrName(prop string) (string, bool) {
	switch prop {
	case "className":
		return "class", true
	case "htmlFor":
		return "for", true
	case "key", "ref", "dangerouslySetInnerHTML":
		return "", false
	}
	if len(prop) > 2 && strings.HasPrefix(prop, "on") && prop[2] >= 'A' && prop[2] <= 'Z' {
		return "", false
	}
	return strings.ToLower(prop), true
}

// compile turns a selector string into a matcher, rejecting malformed input
// instead of panicking the way the convenience Find API would.
func compile(selector string) (cascadia.Selector, bool) {
	if strings.TrimSpace(selector) == "" {
		return nil, false
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, false
	}
	return sel, true
}

// Resolve reports whether the selector still matches an element in the
// current tree. A stale or malformed selector resolves to false.
func (m *Mirror) Resolve(selector string) bool {
	sel, ok := compile(selector)
	if !ok {
		return false
	}
	return m.doc.FindMatcher(sel).Length() > 0
}

// Text returns the text content of the first matching element.
func (m *Mirror) Text(selector string) (string, bool) {
	sel, ok := compile(selector)
	if !ok {
		return "", false
	}
	match := m.doc.FindMatcher(sel)
	if match.Length() == 0 {
		return "", false
	}
	return match.First().Text(), true
}

// ApplyText replaces the text of the first matching element, reporting
// whether anything matched. A miss is not an error: selections can go stale
// between the click and the edit, and a stale edit simply does not apply.
func (m *Mirror) ApplyText(selector, text string) bool {
	sel, ok := compile(selector)
	if !ok {
		return false
	}
	match := m.doc.FindMatcher(sel)
	if match.Length() == 0 {
		return false
	}
	match.First().SetText(text)
	return true
}

// HTML returns the serialized body of the mirror.
func (m *Mirror) HTML() (string, error) {
	return m.doc.Find("body").Html()
}
