package codegen

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// forbiddenContainers are the document-shell tags a component body must never
// contain. Their presence means the model ignored the "no HTML shell"
// instruction and returned a page instead of a component.
var forbiddenContainers = map[string]bool{
	"html": true,
	"body": true,
	"head": true,
}

var cssRuleRe = regexp.MustCompile(`\.[a-zA-Z0-9_-]+\s*\{`)

// Validate runs the structural gates over a normalized output, in order.
// The first failure short-circuits with its rejection kind.
func Validate(out NormalizedOutput) Verdict {
	if containsForeignMarkup(out.Body) {
		return reject(ForeignMarkupRejected)
	}
	if cssRuleRe.MatchString(out.Body) {
		return reject(SegmentConfusionRejected)
	}
	if strings.Count(out.Body, "{") != strings.Count(out.Body, "}") {
		return reject(IncompleteGenerationRejected)
	}
	if !strings.Contains(out.Body, "function "+ComponentName) {
		return reject(DeclarationMissingRejected)
	}
	return accept()
}

// containsForeignMarkup tokenizes the body as markup and looks for the
// forbidden container tags. Tokenizing instead of substring matching keeps
// legitimate component tags like <header> out of the blast radius.
func containsForeignMarkup(body string) bool {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if forbiddenContainers[strings.ToLower(string(name))] {
				return true
			}
		}
	}
}
