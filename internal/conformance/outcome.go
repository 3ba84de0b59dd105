package conformance

import "fmt"

// Kind is the verdict category.
type Kind string

const (
	AcceptableSuccess Kind = "acceptable_success"
	AcceptableError   Kind = "acceptable_error"
	Violation         Kind = "violation"
)

// Channel says how an acceptable error was signaled.
type Channel string

const (
	// ChannelStatus is a 4xx transport status.
	ChannelStatus Channel = "status"
	// ChannelBodyFlag is a 2xx status with success=false, a non-zero
	// error code and an error message.
	ChannelBodyFlag Channel = "body_flag"
)

// Reason is a stable, machine-checkable violation code.
type Reason string

const (
	ReasonUnexpectedStatus     Reason = "unexpected_status"
	ReasonSuccessFlagFalse     Reason = "success_flag_false"
	ReasonErrorCodeNonZero     Reason = "error_code_nonzero"
	ReasonErrorMessagePresent  Reason = "error_message_present"
	ReasonPayloadAbsent        Reason = "payload_absent"
	ReasonAttributeMissing     Reason = "attribute_missing"
	ReasonAttributeInvalid     Reason = "attribute_invalid"
	ReasonIDMismatch           Reason = "id_mismatch"
	ReasonSilentAcceptance     Reason = "silent_acceptance"
	ReasonIdentifierCollision  Reason = "identifier_collision"
	ReasonIncompleteErrorBody  Reason = "incomplete_error_body"
	ReasonPayloadPresentOnFail Reason = "payload_present_on_error"
	ReasonInvalidIntent        Reason = "invalid_intent"
)

// Outcome is the classifier's verdict with supporting evidence.
// Channel is set only for AcceptableError; Reason only for Violation.
type Outcome struct {
	Kind     Kind              `json:"kind"`
	Channel  Channel           `json:"channel,omitempty"`
	Reason   Reason            `json:"reason,omitempty"`
	Evidence map[string]string `json:"evidence"`
}

// Acceptable reports whether the outcome is not a violation.
func (o Outcome) Acceptable() bool {
	return o.Kind != Violation
}

func (o Outcome) String() string {
	switch o.Kind {
	case AcceptableError:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Channel)
	case Violation:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
	}
	return string(o.Kind)
}

// Canonical converts the outcome to the generic form accepted by
// canon.Marshal.
func (o Outcome) Canonical() map[string]any {
	m := map[string]any{
		"kind":     string(o.Kind),
		"evidence": copyEvidence(o.Evidence),
	}
	if o.Channel != "" {
		m["channel"] = string(o.Channel)
	}
	if o.Reason != "" {
		m["reason"] = string(o.Reason)
	}
	return m
}

func copyEvidence(ev map[string]string) map[string]string {
	out := make(map[string]string, len(ev))
	for k, v := range ev {
		out[k] = v
	}
	return out
}
