package codegen

import (
	"regexp"
	"strings"
)

// hookPrelude binds the recognized interactive-state hooks as free
// identifiers. The sandbox loads the UI runtime as a single global object,
// so the body cannot import them.
const hookPrelude = "const { useState, useEffect, useRef, useContext, useReducer, useCallback, useMemo } = window.React;\n"

var (
	fenceRe          = regexp.MustCompile("```[a-zA-Z]*")
	importRe         = regexp.MustCompile(`import.*from.*;?`)
	exportDefaultRe  = regexp.MustCompile(`export\s+default\s+Component;?`)
	exportFuncRe     = regexp.MustCompile(`export\s+default\s+function\s+Component\s*\(`)
	arrowDeclRe      = regexp.MustCompile(`const\s+Component\s*=\s*\(\)\s*=>\s*{`)
	windowBindRe     = regexp.MustCompile(`window\.Component\s*=\s*Component;?`)
	onloadRe         = regexp.MustCompile(`window\.onload\s*=\s*function\s*\(\)\s*{[\s\S]*?}`)
	trailingSemiRe   = regexp.MustCompile(`;\s*$`)
	existingPrelude  = regexp.MustCompile(`const\s*\{[^}]*\}\s*=\s*window\.React;?\n?`)
	hookUsageRe      = regexp.MustCompile(`use(State|Effect|Ref|Context|Reducer|Callback|Memo)\s*\(`)
	styleCommentLine = "the css segment"
)

// Normalize rewrites one raw AI generation into a component body and a
// stylesheet. It is pure, never fails, and is idempotent: normalizing an
// already-normalized output (rejoined on the delimiter) is a no-op.
func Normalize(raw string) NormalizedOutput {
	text := fenceRe.ReplaceAllString(raw, "")
	text = importRe.ReplaceAllString(text, "")
	text = exportDefaultRe.ReplaceAllString(text, "")
	text = exportFuncRe.ReplaceAllString(text, "function Component(")
	text = replaceFirst(text, arrowDeclRe, "function Component() {")
	text = windowBindRe.ReplaceAllString(text, "")
	text = onloadRe.ReplaceAllString(text, "")
	text = trailingSemiRe.ReplaceAllString(text, "")

	body, style := splitSegments(text)

	// Drop whatever prelude the model emitted itself, then add back exactly
	// one canonical prelude when the body actually calls a hook.
	body = existingPrelude.ReplaceAllString(body, "")
	if hookUsageRe.MatchString(body) {
		body = hookPrelude + body
	}

	return NormalizedOutput{Body: body, Style: style}
}

// splitSegments splits on the stylesheet delimiter. No delimiter means the
// whole text is body and the stylesheet is empty.
func splitSegments(text string) (body, style string) {
	body, style, found := strings.Cut(text, StyleDelimiter)
	body = strings.TrimSpace(body)
	if !found {
		return body, ""
	}
	return body, cleanStyle(style)
}

// cleanStyle drops the explanation lines some models emit inside the
// stylesheet segment ("The CSS segment below ...").
func cleanStyle(style string) string {
	lines := strings.Split(strings.TrimSpace(style), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), styleCommentLine) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// replaceFirst applies re once. The arrow-declaration rewrite must not touch
// nested arrow functions later in the body.
func replaceFirst(s string, re *regexp.Regexp, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
