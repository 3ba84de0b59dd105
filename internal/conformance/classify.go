package conformance

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/profilecheck/internal/envelope"
)

// acceptance is the declarative description of one intent's accepted
// outcome set. Every intent is evaluated by the same procedure from its
// entry in acceptances.
type acceptance struct {
	expectsSuccess bool
	// errorStatuses is the default channel-A status set; nil accepts any 4xx.
	errorStatuses []int
	// bodyFlagNoPayload requires the payload to be absent on a body-flag error.
	bodyFlagNoPayload bool
	// notFoundShape accepts 200 + success + absent or null payload as a
	// body-flag error.
	notFoundShape bool
	// acceptedViolation is the reason reported for a 2xx success response to
	// an error-expecting intent.
	acceptedViolation Reason
	// completeness requires the full profile attribute set.
	completeness bool
}

var acceptances = map[IntentKind]acceptance{
	ValidLookup: {
		expectsSuccess: true,
		completeness:   true,
	},
	EnumeratedField: {
		expectsSuccess: true,
	},
	InvalidParameter: {
		bodyFlagNoPayload: true,
		acceptedViolation: ReasonSilentAcceptance,
	},
	OutOfRange: {
		errorStatuses:     []int{404},
		notFoundShape:     true,
		acceptedViolation: ReasonIdentifierCollision,
	},
	MissingParameter: {
		errorStatuses:     []int{400},
		acceptedViolation: ReasonSilentAcceptance,
	},
}

// Classify evaluates an envelope against an intent. It is pure and total:
// every (envelope, intent) pair yields exactly one outcome, and identical
// inputs always yield identical outcomes.
func Classify(env envelope.Envelope, intent Intent) Outcome {
	ev := env.Summary()
	for k, v := range intent.evidence() {
		ev[k] = v
	}
	addDrift(ev, env, intent.Documented)

	acc, ok := acceptances[intent.Kind]
	if !ok {
		return violation(ReasonInvalidIntent, ev, "detail.intent", string(intent.Kind))
	}
	if err := intent.Validate(); err != nil {
		return violation(ReasonInvalidIntent, ev, "detail.intent", string(intent.Kind), "detail.error", err.Error())
	}
	if acc.expectsSuccess {
		return classifySuccess(env, intent, acc, ev)
	}
	return classifyError(env, intent, acc, ev)
}

// classifySuccess handles intents whose only acceptable outcome is a
// successful response. Any contradiction between status and body is a
// violation.
func classifySuccess(env envelope.Envelope, intent Intent, acc acceptance, ev map[string]string) Outcome {
	want := intent.Statuses
	if len(want) == 0 {
		want = []int{200}
	}
	switch {
	case !slices.Contains(want, env.StatusCode):
		return violation(ReasonUnexpectedStatus, ev, "detail.expected_status", joinInts(want))
	case !env.Success:
		return violation(ReasonSuccessFlagFalse, ev)
	case env.ErrorCode.NonZero():
		return violation(ReasonErrorCodeNonZero, ev)
	case env.ErrorCode.Presence == envelope.Malformed:
		return violation(ReasonErrorCodeNonZero, ev, "detail.observed", env.ErrorCode.Raw)
	case env.ErrorMessage.Presence == envelope.Present || env.ErrorMessage.Presence == envelope.Malformed:
		return violation(ReasonErrorMessagePresent, ev)
	}

	if p := env.PayloadPresence(intent.Payload); !p.Provided() {
		return violation(ReasonPayloadAbsent, ev, "detail.payload", p.String())
	}
	if intent.Payload == envelope.PayloadIDs {
		return Outcome{Kind: AcceptableSuccess, Evidence: ev}
	}

	if acc.completeness {
		if out, failed := checkCompleteness(env.Profile, intent, ev); failed {
			return out
		}
	}
	if out, failed := checkFieldRules(env.Profile, intent.Fields, ev); failed {
		return out
	}
	return Outcome{Kind: AcceptableSuccess, Evidence: ev}
}

// checkCompleteness verifies the profile attributes in declaration order
// and reports the first failure.
func checkCompleteness(p envelope.Profile, intent Intent, ev map[string]string) (Outcome, bool) {
	for _, f := range envelope.ProfileFields {
		value, presence := p.Attribute(f)
		if !presence.Provided() {
			return violation(ReasonAttributeMissing, ev, "detail.field", string(f), "detail.observed", value), true
		}

		switch f {
		case envelope.FieldID:
			if p.ID.Value <= 0 {
				return violation(ReasonAttributeInvalid, ev, "detail.field", string(f), "detail.observed", value, "detail.rule", "positive"), true
			}
			if intent.TargetID > 0 && p.ID.Value != intent.TargetID {
				return violation(ReasonIDMismatch, ev, "detail.field", string(f), "detail.observed", value,
					"detail.expected", strconv.FormatInt(intent.TargetID, 10)), true
			}
		case envelope.FieldAge:
			if p.Age.Value <= 0 {
				return violation(ReasonAttributeInvalid, ev, "detail.field", string(f), "detail.observed", value, "detail.rule", "positive"), true
			}
		default:
			if strings.TrimSpace(value) == "" {
				return violation(ReasonAttributeInvalid, ev, "detail.field", string(f), "detail.observed", value, "detail.rule", "non_empty"), true
			}
		}
	}
	return Outcome{}, false
}

func checkFieldRules(p envelope.Profile, rules []FieldRule, ev map[string]string) (Outcome, bool) {
	if len(rules) == 0 {
		return Outcome{}, false
	}
	fold := cases.Fold()
	for _, rule := range rules {
		value, presence := p.Attribute(rule.Field)
		if !presence.Provided() {
			return violation(ReasonAttributeMissing, ev, "detail.field", string(rule.Field), "detail.observed", value), true
		}
		if failed := rule.check(value, fold); failed != "" {
			return violation(ReasonAttributeInvalid, ev,
				"detail.field", string(rule.Field),
				"detail.observed", value,
				"detail.rule", failed,
				"detail.constraint", rule.Describe()), true
		}
	}
	return Outcome{}, false
}

// classifyError handles intents that expect the API to reject the request.
// A 4xx status wins over a contradicting body.
func classifyError(env envelope.Envelope, intent Intent, acc acceptance, ev map[string]string) Outcome {
	allowed := intent.Statuses
	if len(allowed) == 0 {
		allowed = acc.errorStatuses
	}

	if env.Is4xx() {
		if allowed != nil && !slices.Contains(allowed, env.StatusCode) {
			return violation(ReasonUnexpectedStatus, ev, "detail.expected_status", joinInts(allowed))
		}
		if env.Success {
			ev["contradiction"] = "success flag true on error status"
		}
		return Outcome{Kind: AcceptableError, Channel: ChannelStatus, Evidence: ev}
	}

	if !env.Is2xx() {
		expected := "4xx"
		if allowed != nil {
			expected = joinInts(allowed)
		}
		return violation(ReasonUnexpectedStatus, ev, "detail.expected_status", expected+" or 2xx body flag")
	}

	if env.Success {
		if acc.notFoundShape && isNotFoundShape(env, intent.Payload) {
			ev["detail.shape"] = "not_found"
			return Outcome{Kind: AcceptableError, Channel: ChannelBodyFlag, Evidence: ev}
		}
		return violation(acc.acceptedViolation, ev)
	}

	if missing := missingErrorParts(env); missing != "" {
		return violation(ReasonIncompleteErrorBody, ev, "detail.missing", missing)
	}
	if acc.bodyFlagNoPayload && env.PayloadPresence(intent.Payload).Provided() {
		return violation(ReasonPayloadPresentOnFail, ev, "detail.payload", intent.Payload.String())
	}
	return Outcome{Kind: AcceptableError, Channel: ChannelBodyFlag, Evidence: ev}
}

// isNotFoundShape reports a plain 200 success whose payload is absent or
// null. Other 2xx statuses and malformed payloads do not qualify.
func isNotFoundShape(env envelope.Envelope, payload envelope.Payload) bool {
	if env.StatusCode != 200 {
		return false
	}
	p := env.PayloadPresence(payload)
	return p == envelope.Absent || p == envelope.Null
}

// missingErrorParts lists what a 2xx failure body lacks to qualify as a
// body-flag error.
func missingErrorParts(env envelope.Envelope) string {
	var missing []string
	if !env.ErrorCode.NonZero() {
		missing = append(missing, "error_code")
	}
	if !env.ErrorMessage.Provided() {
		missing = append(missing, "error_message")
	}
	return strings.Join(missing, ",")
}

// addDrift records field names that differ from the documented ones.
// Drift never changes the verdict.
func addDrift(ev map[string]string, env envelope.Envelope, documented map[envelope.Field]string) {
	for f, want := range documented {
		observed := env.Alias(f)
		if observed == "" {
			continue
		}
		for _, name := range strings.Split(observed, ",") {
			if name != want {
				ev["drift."+string(f)] = "documented=" + want + " observed=" + observed
				break
			}
		}
	}
}

// violation builds a violation outcome. details are key/value pairs added
// to the evidence.
func violation(reason Reason, ev map[string]string, details ...string) Outcome {
	for i := 0; i+1 < len(details); i += 2 {
		ev[details[i]] = details[i+1]
	}
	return Outcome{Kind: Violation, Reason: reason, Evidence: ev}
}
