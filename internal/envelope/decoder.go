package envelope

import (
	"bytes"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Decoder normalizes raw responses into Envelopes using an alias table.
// A Decoder holds no mutable state and is safe for concurrent use.
type Decoder struct {
	aliases AliasTable
}

// NewDecoder creates a decoder for the given alias table.
// A nil table selects DefaultAliases.
func NewDecoder(aliases AliasTable) *Decoder {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Decoder{aliases: aliases}
}

var defaultDecoder = NewDecoder(nil)

// Decode normalizes a response with the default alias table.
func Decode(status int, body []byte) (Envelope, error) {
	return defaultDecoder.Decode(status, body)
}

// Decode converts a status and raw body into an Envelope.
//
// Missing, null and mistyped fields never cause an error; they are recorded
// through each field's Presence. An empty body decodes to an envelope whose
// body fields are all Absent. The only error is *DecodeError, returned when
// a non-empty body is not parseable JSON.
func (d *Decoder) Decode(status int, body []byte) (Envelope, error) {
	env := Envelope{
		StatusCode: status,
		Shape:      BodyObject,
		aliases:    map[Field]string{},
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		env.Shape = BodyEmpty
		return env, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return Envelope{}, newDecodeError(status, trimmed)
	}

	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		env.Shape = BodyNonObject
		return env, nil
	}

	top := members(root)
	env.Success, env.SuccessPresence = d.success(top, env.aliases)

	if name, r, ok := d.pickInto(&env, top, FieldErrorCode); ok {
		env.ErrorCode = toInt(r)
		env.aliases[FieldErrorCode] = name
	}
	if name, r, ok := d.pickInto(&env, top, FieldErrorMessage); ok {
		env.ErrorMessage = toString(r)
		env.aliases[FieldErrorMessage] = name
	}
	if name, r, ok := d.pickInto(&env, top, FieldProfile); ok {
		env.Profile = d.profile(&env, r)
		env.aliases[FieldProfile] = name
	}
	if name, r, ok := d.pickInto(&env, top, FieldIDs); ok {
		env.IDs = toIDList(r)
		env.aliases[FieldIDs] = name
	}

	return env, nil
}

// pickInto runs pick and records any skipped aliases on env.
func (d *Decoder) pickInto(env *Envelope, fields map[string]gjson.Result, f Field) (string, gjson.Result, bool) {
	name, r, ok, skipped := d.pick(fields, f)
	if len(skipped) > 0 {
		if env.skipped == nil {
			env.skipped = map[Field]string{}
		}
		env.skipped[f] = strings.Join(skipped, ",")
	}
	return name, r, ok
}

// members collects the direct children of an object. When a key repeats,
// the first occurrence wins, matching gjson.Get.
func members(obj gjson.Result) map[string]gjson.Result {
	out := map[string]gjson.Result{}
	obj.ForEach(func(key, value gjson.Result) bool {
		if _, dup := out[key.Str]; !dup {
			out[key.Str] = value
		}
		return true
	})
	return out
}

// success ORs every success alias holding boolean true. Presence is the
// strongest state seen across aliases.
func (d *Decoder) success(top map[string]gjson.Result, aliases map[Field]string) (bool, Presence) {
	var (
		value    bool
		presence = Absent
		seen     []string
	)
	for _, name := range d.aliases[FieldSuccess] {
		r, ok := top[name]
		if !ok {
			continue
		}
		seen = append(seen, name)

		p := Malformed
		switch r.Type {
		case gjson.True:
			value = true
			p = Present
		case gjson.False:
			p = Present
		case gjson.Null:
			p = Null
		}
		if p.rank() > presence.rank() {
			presence = p
		}
	}
	if len(seen) > 0 {
		aliases[FieldSuccess] = strings.Join(seen, ",")
	}
	return value, presence
}

// pick resolves a single-valued field. The first alias carrying a usable
// value wins, so a null or malformed value under an earlier alias is skipped
// rather than hiding a good one further down the table; the skipped names are
// returned for evidence. If no alias is usable, the alias with the strongest
// presence is used so that null and malformed values are still reported.
func (d *Decoder) pick(fields map[string]gjson.Result, f Field) (string, gjson.Result, bool, []string) {
	var (
		bestName string
		best     gjson.Result
		bestRank = -1
		bestAt   int
		skipped  []string
	)
	for _, name := range d.aliases[f] {
		r, ok := fields[name]
		if !ok {
			continue
		}
		if r.Type != gjson.Null && usable(f, r) {
			return name, r, true, skipped
		}
		state := Malformed
		if r.Type == gjson.Null {
			state = Null
		}
		if state.rank() > bestRank {
			bestName, best, bestRank, bestAt = name, r, state.rank(), len(skipped)
		}
		skipped = append(skipped, name+"="+state.String())
	}
	if bestRank < 0 {
		return "", gjson.Result{}, false, nil
	}
	// The fallback alias is reported as the source, not as skipped.
	return bestName, best, true, slices.Delete(skipped, bestAt, bestAt+1)
}

// usable reports whether r has the type field f expects.
func usable(f Field, r gjson.Result) bool {
	switch f {
	case FieldErrorCode, FieldID, FieldAge:
		return toInt(r).Provided()
	case FieldProfile:
		return r.IsObject()
	case FieldIDs:
		return r.IsArray()
	default:
		return r.Type == gjson.String
	}
}

func (d *Decoder) profile(env *Envelope, r gjson.Result) Profile {
	switch {
	case r.Type == gjson.Null:
		return Profile{Presence: Null}
	case !r.IsObject():
		return Profile{Presence: Malformed}
	}

	fields := members(r)
	p := Profile{Presence: Present}
	for _, f := range ProfileFields {
		name, v, ok := d.pickInto(env, fields, f)
		if !ok {
			continue
		}
		if name != string(f) {
			env.aliases[f] = name
		}
		switch f {
		case FieldID:
			p.ID = toInt(v)
		case FieldAge:
			p.Age = toInt(v)
		case FieldName:
			p.Name = toString(v)
		case FieldGender:
			p.Gender = toString(v)
		case FieldCity:
			p.City = toString(v)
		case FieldRegistrationDate:
			p.RegistrationDate = toString(v)
		}
	}
	return p
}

// toInt accepts JSON integers and numeric strings.
func toInt(r gjson.Result) OptInt {
	switch r.Type {
	case gjson.Null:
		return OptInt{Presence: Null}
	case gjson.Number:
		if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return OptInt{Value: n, Presence: Present}
		}
	case gjson.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64); err == nil {
			return OptInt{Value: n, Presence: Present}
		}
	}
	return OptInt{Presence: Malformed, Raw: r.Raw}
}

func toString(r gjson.Result) OptString {
	switch r.Type {
	case gjson.Null:
		return OptString{Presence: Null}
	case gjson.String:
		return OptString{Value: r.Str, Presence: Present}
	}
	return OptString{Presence: Malformed, Raw: r.Raw}
}

// toIDList keeps integer elements in order and counts the rest as dropped.
func toIDList(r gjson.Result) IDList {
	switch {
	case r.Type == gjson.Null:
		return IDList{Presence: Null}
	case !r.IsArray():
		return IDList{Presence: Malformed}
	}

	list := IDList{Presence: Present, IDs: []int64{}}
	r.ForEach(func(_, elem gjson.Result) bool {
		if n := toInt(elem); n.Provided() {
			list.IDs = append(list.IDs, n.Value)
		} else {
			list.Dropped++
		}
		return true
	})
	return list
}
