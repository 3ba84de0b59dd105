// Package conformance decides whether a normalized response is an
// acceptable reaction to a request intent.
//
// The profile API signals errors in two ways, and both are correct:
//
//   - Status channel: a 4xx transport status.
//   - Body-flag channel: a 2xx status whose body carries success=false, a
//     non-zero error code and an error message.
//
// Each IntentKind maps to a declarative accepted-outcome set. Classify
// evaluates an envelope against it and returns an Outcome: an acceptable
// success, an acceptable error tagged with its channel, or a violation
// with a stable reason code. Every outcome carries evidence: the envelope
// summary, the intent, caller context, and field-name drift against the
// documented contract.
//
// When status and body disagree, error-expecting intents let the status
// win and record the contradiction; success-expecting intents treat any
// contradiction as a violation.
package conformance
