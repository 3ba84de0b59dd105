package envelope

import "fmt"

// Field is a canonical field name.
type Field string

// Envelope-level fields.
const (
	FieldSuccess      Field = "success"
	FieldErrorCode    Field = "errorCode"
	FieldErrorMessage Field = "errorMessage"
	FieldProfile      Field = "profile"
	FieldIDs          Field = "ids"
)

// Profile attributes.
const (
	FieldID               Field = "id"
	FieldName             Field = "name"
	FieldGender           Field = "gender"
	FieldAge              Field = "age"
	FieldCity             Field = "city"
	FieldRegistrationDate Field = "registrationDate"
)

// ProfileFields lists the profile attributes in completeness-check order.
var ProfileFields = []Field{
	FieldID, FieldName, FieldGender, FieldCity, FieldAge, FieldRegistrationDate,
}

// AliasTable maps each canonical field to the source names that may carry
// it, in priority order.
type AliasTable map[Field][]string

// DefaultAliases returns the alias table covering every naming variant the
// profile API is known to emit.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldSuccess:          {"isSuccess", "success", "is_success"},
		FieldErrorCode:        {"errorCode", "error_code", "code"},
		FieldErrorMessage:     {"errorMessage", "error_message", "message"},
		FieldProfile:          {"user", "profile"},
		FieldIDs:              {"idList", "result", "ids"},
		FieldID:               {"id"},
		FieldName:             {"name"},
		FieldGender:           {"gender"},
		FieldAge:              {"age"},
		FieldCity:             {"city"},
		FieldRegistrationDate: {"registrationDate", "registration_date"},
	}
}

// Validate checks that every canonical field has at least one source name
// and that no source name is claimed twice within the same object level.
func (t AliasTable) Validate() error {
	required := append([]Field{FieldSuccess, FieldErrorCode, FieldErrorMessage, FieldProfile, FieldIDs}, ProfileFields...)
	for _, f := range required {
		if len(t[f]) == 0 {
			return fmt.Errorf("alias table: no source names for %q", f)
		}
	}

	levels := [][]Field{
		{FieldSuccess, FieldErrorCode, FieldErrorMessage, FieldProfile, FieldIDs},
		ProfileFields,
	}
	for _, level := range levels {
		seen := map[string]Field{}
		for _, f := range level {
			for _, name := range t[f] {
				if other, ok := seen[name]; ok {
					return fmt.Errorf("alias table: source name %q claimed by both %q and %q", name, other, f)
				}
				seen[name] = f
			}
		}
	}
	return nil
}

// With returns a copy of the table with extra source names appended to f.
func (t AliasTable) With(f Field, names ...string) AliasTable {
	out := make(AliasTable, len(t))
	for k, v := range t {
		out[k] = append([]string(nil), v...)
	}
	out[f] = append(out[f], names...)
	return out
}
