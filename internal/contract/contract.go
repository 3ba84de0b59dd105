package contract

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/profilecheck/internal/envelope"
	"github.com/roach88/profilecheck/internal/fixture"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed default.cue
var defaultCUE []byte

// Endpoint describes one API route.
type Endpoint struct {
	Path  string `json:"path"`
	Param string `json:"param"`
	// Inclusive is the filter value that matches every record.
	Inclusive string `json:"inclusive,omitempty"`
}

// Contract is the documented behavior of the profile API: routes, the
// valid category set, attribute formats, fallback fixtures and the field
// names the documentation promises.
type Contract struct {
	List             Endpoint          `json:"list"`
	Profile          Endpoint          `json:"profile"`
	Categories       []string          `json:"categories"`
	TimestampPattern string            `json:"timestampPattern"`
	MinAge           int64             `json:"minAge"`
	FallbackIDs      []int64           `json:"fallbackIds"`
	Documented       map[string]string `json:"documented"`

	timestamp *regexp.Regexp
}

// LoadError reports a contract that failed to compile or validate.
type LoadError struct {
	Source  string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// Default returns the built-in contract.
func Default() *Contract {
	c, err := Parse("default.cue", defaultCUE)
	if err != nil {
		panic(fmt.Sprintf("contract: built-in contract is invalid: %v", err))
	}
	return c
}

// Load reads and validates a contract file. An empty path selects Default.
func Load(path string) (*Contract, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}
	return Parse(path, data)
}

// Parse compiles CUE source, unifies it with the #Contract schema and
// decodes the concrete result.
func Parse(name string, src []byte) (*Contract, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Contract"))

	value := ctx.CompileBytes(src, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(name, err)
	}

	var c Contract
	if err := unified.Decode(&c); err != nil {
		return nil, formatCUEError(name, err)
	}

	re, err := regexp.Compile(c.TimestampPattern)
	if err != nil {
		return nil, &LoadError{Source: name, Message: fmt.Sprintf("timestampPattern: %v", err)}
	}
	c.timestamp = re

	if _, err := c.DocumentedAliases(); err != nil {
		return nil, &LoadError{Source: name, Message: err.Error()}
	}
	return &c, nil
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(source string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Source: source, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Source: source, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// Timestamp returns the compiled registration-date pattern.
func (c *Contract) Timestamp() *regexp.Regexp {
	return c.timestamp
}

// DocumentedAliases converts the documented names to decoder fields.
func (c *Contract) DocumentedAliases() (map[envelope.Field]string, error) {
	known := map[string]envelope.Field{
		"success":      envelope.FieldSuccess,
		"errorCode":    envelope.FieldErrorCode,
		"errorMessage": envelope.FieldErrorMessage,
		"profile":      envelope.FieldProfile,
		"ids":          envelope.FieldIDs,
	}
	out := make(map[envelope.Field]string, len(c.Documented))
	for k, v := range c.Documented {
		f, ok := known[k]
		if !ok {
			return nil, fmt.Errorf("documented: unknown field %q", k)
		}
		out[f] = v
	}
	return out, nil
}

// FixtureOptions derives discovery options from the listing endpoint.
func (c *Contract) FixtureOptions() fixture.Options {
	return fixture.Options{
		ListPath:    c.List.Path,
		FilterParam: c.List.Param,
		FilterValue: c.List.Inclusive,
		Fallback:    append([]int64(nil), c.FallbackIDs...),
	}
}

// Endpoint returns the named endpoint ("list" or "profile").
func (c *Contract) Endpoint(name string) (Endpoint, error) {
	switch name {
	case "list":
		return c.List, nil
	case "profile":
		return c.Profile, nil
	}
	return Endpoint{}, fmt.Errorf("unknown endpoint %q", name)
}

// Values returns a named value list that scenarios may reference.
func (c *Contract) Values(name string) ([]string, error) {
	switch name {
	case "categories":
		return append([]string(nil), c.Categories...), nil
	}
	return nil, fmt.Errorf("unknown contract list %q", name)
}
