package conformance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/profilecheck/internal/envelope"
)

// IntentKind names what a request was meant to provoke.
type IntentKind string

const (
	ValidLookup      IntentKind = "valid_lookup"
	InvalidParameter IntentKind = "invalid_parameter"
	OutOfRange       IntentKind = "out_of_range"
	MissingParameter IntentKind = "missing_parameter"
	EnumeratedField  IntentKind = "enumerated_field"
)

// IntentKinds lists every supported kind.
var IntentKinds = []IntentKind{ValidLookup, InvalidParameter, OutOfRange, MissingParameter, EnumeratedField}

// ParseIntentKind converts a scenario or flag value to an IntentKind.
func ParseIntentKind(s string) (IntentKind, error) {
	for _, k := range IntentKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// ExpectsSuccess reports whether the intent's only acceptable outcome is a
// successful response.
func (k IntentKind) ExpectsSuccess() bool {
	return k == ValidLookup || k == EnumeratedField
}

// FieldRule constrains one profile attribute for the enumerated-field
// intent. Every non-zero constraint must hold.
type FieldRule struct {
	Field envelope.Field
	// OneOf is compared with Unicode case folding.
	OneOf    []string
	Pattern  *regexp.Regexp
	Min      *int64
	NonEmpty bool
}

// Describe renders the rule for evidence.
func (r FieldRule) Describe() string {
	var parts []string
	if len(r.OneOf) > 0 {
		parts = append(parts, "one_of="+strings.Join(r.OneOf, "|"))
	}
	if r.Pattern != nil {
		parts = append(parts, "pattern="+r.Pattern.String())
	}
	if r.Min != nil {
		parts = append(parts, "min="+strconv.FormatInt(*r.Min, 10))
	}
	if r.NonEmpty {
		parts = append(parts, "non_empty")
	}
	return strings.Join(parts, ",")
}

// check evaluates the rule against a rendered attribute value.
// It returns the name of the first failing constraint, or "".
func (r FieldRule) check(value string, fold cases.Caser) string {
	if r.NonEmpty && strings.TrimSpace(value) == "" {
		return "non_empty"
	}
	if len(r.OneOf) > 0 {
		folded := fold.String(value)
		found := false
		for _, allowed := range r.OneOf {
			if fold.String(allowed) == folded {
				found = true
				break
			}
		}
		if !found {
			return "one_of"
		}
	}
	if r.Pattern != nil && !r.Pattern.MatchString(value) {
		return "pattern"
	}
	if r.Min != nil {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < *r.Min {
			return "min"
		}
	}
	return ""
}

// Intent describes one request and the outcomes it may acceptably produce.
// Intents are built by the runner and are read-only during classification.
type Intent struct {
	Kind IntentKind
	// Target describes the request subject for evidence (an id, a filter value).
	Target string
	// TargetID, when positive, must equal the returned profile id.
	TargetID int64
	Payload  envelope.Payload
	// Statuses narrows the accepted error statuses (channel A). Empty keeps
	// the intent's default set.
	Statuses []int
	Fields   []FieldRule
	// Documented maps canonical fields to the name the API documentation
	// uses. A different observed name is reported as drift evidence.
	Documented map[envelope.Field]string
	// Context is copied verbatim into the outcome evidence.
	Context map[string]string
}

// Validate checks an intent before use.
func (i Intent) Validate() error {
	if _, err := ParseIntentKind(string(i.Kind)); err != nil {
		return err
	}
	if i.Kind == EnumeratedField {
		if len(i.Fields) == 0 {
			return fmt.Errorf("intent %s: at least one field rule is required", i.Kind)
		}
		if i.Payload != envelope.PayloadProfile {
			return fmt.Errorf("intent %s: field rules apply to profile payloads only", i.Kind)
		}
	}
	for n, rule := range i.Fields {
		if rule.Field == "" {
			return fmt.Errorf("intent %s: fields[%d]: field is required", i.Kind, n)
		}
		if len(rule.OneOf) == 0 && rule.Pattern == nil && rule.Min == nil && !rule.NonEmpty {
			return fmt.Errorf("intent %s: fields[%d]: rule for %q has no constraint", i.Kind, n, rule.Field)
		}
	}
	for _, s := range i.Statuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("intent %s: status %d out of range", i.Kind, s)
		}
	}
	return nil
}

func (i Intent) evidence() map[string]string {
	ev := map[string]string{
		"intent.kind":    string(i.Kind),
		"intent.payload": i.Payload.String(),
	}
	if i.Target != "" {
		ev["intent.target"] = i.Target
	}
	if len(i.Statuses) > 0 {
		ev["intent.statuses"] = joinInts(i.Statuses)
	}
	for k, v := range i.Context {
		ev[k] = v
	}
	return ev
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
