package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccepts(t *testing.T) {
	out := Normalize("```jsx\nfunction Component(){return null}\n```\n/* CSS */\nbody{color:red}")
	verdict := Validate(out)

	assert.True(t, verdict.Accepted)
	assert.Nil(t, verdict.Reason)
}

func TestValidateGates(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ErrorKind
	}{
		{
			name: "document shell",
			body: "<html><body>hi</body></html>",
			want: ForeignMarkupRejected,
		},
		{
			name: "head tag alone",
			body: "function Component(){return <head></head>}",
			want: ForeignMarkupRejected,
		},
		{
			name: "css bled into body",
			body: "function Component(){return null}\n.card { color: red; }",
			want: SegmentConfusionRejected,
		},
		{
			name: "truncated generation",
			body: "function Component(){return <div>",
			want: IncompleteGenerationRejected,
		},
		{
			name: "no declaration",
			body: "const render = () => null",
			want: DeclarationMissingRejected,
		},
		{
			name: "wrong component name",
			body: "function App(){return null}",
			want: DeclarationMissingRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Validate(NormalizedOutput{Body: tt.body})
			require.False(t, verdict.Accepted)
			require.NotNil(t, verdict.Reason)
			assert.Equal(t, tt.want, *verdict.Reason)
		})
	}
}

func TestValidateGateOrder(t *testing.T) {
	// Foreign markup wins over every later gate even when all would fail.
	out := NormalizedOutput{Body: "<body>\n.a{x:y}\n{"}
	verdict := Validate(out)
	require.NotNil(t, verdict.Reason)
	assert.Equal(t, ForeignMarkupRejected, *verdict.Reason)
}

func TestValidateAllowsHeaderTag(t *testing.T) {
	// <header> is a legitimate component tag; only the three shell
	// containers are forbidden.
	out := NormalizedOutput{Body: "function Component(){return <header>hi</header>}"}
	assert.True(t, Validate(out).Accepted)
}

func TestValidateStyleIsUnconstrained(t *testing.T) {
	out := NormalizedOutput{
		Body:  "function Component(){return null}",
		Style: "anything {{{ goes",
	}
	assert.True(t, Validate(out).Accepted)
}
