/*
Package ai talks to the model that writes components.

The client speaks the OpenAI chat protocol against a configurable base URL
(OpenRouter by default). Transport retries and a circuit breaker sit between
the caller and the provider. Generation never returns an error: a failed call
produces a commented error body that flows through the same normalize and
validate pipeline as real output, so the caller has exactly one code path.
*/
package ai
