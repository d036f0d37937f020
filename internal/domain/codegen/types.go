package codegen

// ComponentName is the only accepted top-level declaration name.
const ComponentName = "Component"

// StyleDelimiter separates the component body from the stylesheet segment.
const StyleDelimiter = "/* CSS */"

// NormalizedOutput is the two-part result of normalizing one raw generation.
type NormalizedOutput struct {
	Body  string `json:"body"`
	Style string `json:"style"`
}

// ErrorKind identifies which gate rejected a generation.
type ErrorKind string

const (
	ForeignMarkupRejected        ErrorKind = "foreign_markup_rejected"
	SegmentConfusionRejected     ErrorKind = "segment_confusion_rejected"
	IncompleteGenerationRejected ErrorKind = "incomplete_generation_rejected"
	DeclarationMissingRejected   ErrorKind = "declaration_missing_rejected"
	RuntimeFault                 ErrorKind = "runtime_fault"
	TransportFailure             ErrorKind = "transport_failure"
)

// Message returns the user-facing warning for a rejection kind.
// Raw internal detail is never surfaced.
func (k ErrorKind) Message() string {
	switch k {
	case ForeignMarkupRejected:
		return "The AI returned HTML. Please rephrase your prompt or try again. Only function components are supported."
	case SegmentConfusionRejected:
		return "The AI returned CSS in the component section. Please rephrase your prompt or try again."
	case IncompleteGenerationRejected:
		return "The AI did not return a complete function Component. Please try again or rephrase your prompt."
	case DeclarationMissingRejected:
		return "The AI did not return a valid function Component. Please try again or rephrase your prompt."
	case RuntimeFault:
		return "The component failed while rendering. The error is shown in the preview."
	case TransportFailure:
		return "The request could not be completed. Your previous component is unchanged."
	default:
		return "The generation could not be used. Please try again."
	}
}

// Verdict is the outcome of running a normalized output through the gates.
type Verdict struct {
	Accepted bool       `json:"accepted"`
	Reason   *ErrorKind `json:"reason,omitempty"`
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(kind ErrorKind) Verdict {
	return Verdict{Accepted: false, Reason: &kind}
}
