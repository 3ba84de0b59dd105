package envelope

import (
	"strconv"
)

// Presence records how an optional field appeared in a response body.
// The classifier treats everything except Present as "not provided"; the
// distinction is kept for diagnostics.
type Presence int

const (
	// Absent means no alias of the field appeared in the body.
	Absent Presence = iota
	// Null means an alias appeared with an explicit JSON null.
	Null
	// Present means an alias appeared with a usable value.
	Present
	// Malformed means an alias appeared with a value of the wrong type.
	Malformed
)

var presenceNames = [...]string{"absent", "null", "present", "malformed"}

func (p Presence) String() string {
	if int(p) < len(presenceNames) {
		return presenceNames[p]
	}
	return "unknown"
}

// Provided reports whether the field carries a usable value.
func (p Presence) Provided() bool {
	return p == Present
}

// rank orders non-present states when several aliases disagree.
func (p Presence) rank() int {
	switch p {
	case Present:
		return 3
	case Malformed:
		return 2
	case Null:
		return 1
	}
	return 0
}

// OptInt is an optional integer field.
type OptInt struct {
	Value    int64
	Presence Presence
	// Raw holds the JSON text of a malformed value.
	Raw string
}

// Provided reports whether the field carries a usable integer.
func (o OptInt) Provided() bool { return o.Presence.Provided() }

// NonZero reports whether the field is provided and differs from zero.
func (o OptInt) NonZero() bool { return o.Provided() && o.Value != 0 }

// String renders the value for evidence, or the presence state when the
// value is not usable.
func (o OptInt) String() string {
	if o.Provided() {
		return strconv.FormatInt(o.Value, 10)
	}
	return o.Presence.String()
}

// OptString is an optional string field.
type OptString struct {
	Value    string
	Presence Presence
	Raw      string
}

// Provided reports whether the field carries a string, possibly empty.
func (o OptString) Provided() bool { return o.Presence.Provided() }

// NonEmpty reports whether the field is provided with at least one byte.
func (o OptString) NonEmpty() bool { return o.Provided() && o.Value != "" }

func (o OptString) String() string {
	if o.Provided() {
		return o.Value
	}
	return o.Presence.String()
}

// Profile is the canonical user-profile payload.
type Profile struct {
	Presence         Presence
	ID               OptInt
	Name             OptString
	Gender           OptString
	Age              OptInt
	City             OptString
	RegistrationDate OptString
}

// Attribute returns a profile attribute by canonical field name, rendered
// as it would appear in evidence, together with its presence.
func (p Profile) Attribute(f Field) (string, Presence) {
	switch f {
	case FieldID:
		return p.ID.String(), p.ID.Presence
	case FieldName:
		return p.Name.String(), p.Name.Presence
	case FieldGender:
		return p.Gender.String(), p.Gender.Presence
	case FieldAge:
		return p.Age.String(), p.Age.Presence
	case FieldCity:
		return p.City.String(), p.City.Presence
	case FieldRegistrationDate:
		return p.RegistrationDate.String(), p.RegistrationDate.Presence
	}
	return Absent.String(), Absent
}

// IDList is the canonical identifier-list payload.
type IDList struct {
	Presence Presence
	IDs      []int64
	// Dropped counts elements that were not usable integers.
	Dropped int
}

// Payload selects which payload an intent expects.
type Payload int

const (
	PayloadProfile Payload = iota
	PayloadIDs
)

func (p Payload) String() string {
	if p == PayloadIDs {
		return "ids"
	}
	return "profile"
}

// BodyShape describes the top-level body.
type BodyShape string

const (
	BodyObject    BodyShape = "object"
	BodyEmpty     BodyShape = "empty"
	BodyNonObject BodyShape = "non_object"
)

// Envelope is the canonical view of one response. It is a value: once
// returned by a Decoder it is never modified.
type Envelope struct {
	StatusCode int
	// Success is the logical OR of every success alias holding boolean true.
	Success         bool
	SuccessPresence Presence
	ErrorCode       OptInt
	ErrorMessage    OptString
	Profile         Profile
	IDs             IDList
	Shape           BodyShape

	aliases map[Field]string
	// skipped holds aliases that appeared but lost to another alias,
	// as "name=state" pairs.
	skipped map[Field]string
}

// Alias returns the source name that supplied field f, or "" when no alias
// appeared. For the success flag several names may be reported, comma
// separated in alias-table order.
func (e Envelope) Alias(f Field) string {
	return e.aliases[f]
}

// Skipped returns the aliases of f that appeared with a null or malformed
// value and lost to another alias, as comma separated "name=state" pairs.
func (e Envelope) Skipped(f Field) string {
	return e.skipped[f]
}

// Aliases returns a copy of the observed field-name mapping.
func (e Envelope) Aliases() map[Field]string {
	out := make(map[Field]string, len(e.aliases))
	for k, v := range e.aliases {
		out[k] = v
	}
	return out
}

// PayloadPresence returns the presence of the requested payload.
func (e Envelope) PayloadPresence(p Payload) Presence {
	if p == PayloadIDs {
		return e.IDs.Presence
	}
	return e.Profile.Presence
}

// Is2xx reports a status in 200-299.
func (e Envelope) Is2xx() bool { return e.StatusCode >= 200 && e.StatusCode <= 299 }

// Is4xx reports a status in 400-499.
func (e Envelope) Is4xx() bool { return e.StatusCode >= 400 && e.StatusCode <= 499 }

// Summary renders the envelope as flat evidence. Keys are prefixed with
// "envelope." so they can be merged with other evidence without collision.
func (e Envelope) Summary() map[string]string {
	s := map[string]string{
		"envelope.status":           strconv.Itoa(e.StatusCode),
		"envelope.body":             string(e.Shape),
		"envelope.success":          strconv.FormatBool(e.Success),
		"envelope.success_presence": e.SuccessPresence.String(),
		"envelope.error_code":       e.ErrorCode.String(),
		"envelope.error_message":    e.ErrorMessage.String(),
		"envelope.profile":          e.Profile.Presence.String(),
		"envelope.ids":              e.IDs.Presence.String(),
	}
	if e.IDs.Presence.Provided() {
		s["envelope.ids_count"] = strconv.Itoa(len(e.IDs.IDs))
	}
	if e.IDs.Dropped > 0 {
		s["envelope.ids_dropped"] = strconv.Itoa(e.IDs.Dropped)
	}
	for f, name := range e.aliases {
		s["envelope.alias."+string(f)] = name
	}
	for f, names := range e.skipped {
		s["envelope.skipped."+string(f)] = names
	}
	return s
}
