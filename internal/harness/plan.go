package harness

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/profilecheck/internal/conformance"
	"github.com/roach88/profilecheck/internal/contract"
	"github.com/roach88/profilecheck/internal/envelope"
	"github.com/roach88/profilecheck/internal/fixture"
	"github.com/roach88/profilecheck/internal/transport"
)

// Contract references available to field rules.
const (
	ContractCategories = "categories"
	ContractTimestamp  = "timestamp"
	ContractMinAge     = "min_age"
)

// Plan is a scenario resolved against a contract: the endpoint to call and
// the intent every response is classified against.
type Plan struct {
	Scenario *Scenario
	Endpoint contract.Endpoint
	Intent   conformance.Intent
}

// request is one expanded call of a plan.
type request struct {
	target   string
	targetID int64
	req      transport.Request
}

// Compile resolves a scenario against the contract. It fails for unknown
// intents, unknown contract references and rules that do not compile.
func Compile(s *Scenario, c *contract.Contract) (*Plan, error) {
	kind, err := conformance.ParseIntentKind(s.Intent)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	ep, err := c.Endpoint(s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	documented, err := c.DocumentedAliases()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	payload := envelope.PayloadProfile
	if s.Endpoint == EndpointList {
		payload = envelope.PayloadIDs
	}

	rules := make([]conformance.FieldRule, 0, len(s.Fields))
	for i, spec := range s.Fields {
		rule, err := compileField(spec, c)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: fields[%d]: %w", s.Name, i, err)
		}
		rules = append(rules, rule)
	}

	intent := conformance.Intent{
		Kind:       kind,
		Payload:    payload,
		Statuses:   append([]int(nil), s.Statuses...),
		Fields:     rules,
		Documented: documented,
	}
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	if s.Target.Contract != "" {
		if _, err := c.Values(s.Target.Contract); err != nil {
			return nil, fmt.Errorf("scenario %s: target: %w", s.Name, err)
		}
	}

	return &Plan{Scenario: s, Endpoint: ep, Intent: intent}, nil
}

func compileField(spec FieldSpec, c *contract.Contract) (conformance.FieldRule, error) {
	field, err := profileField(spec.Field)
	if err != nil {
		return conformance.FieldRule{}, err
	}
	rule := conformance.FieldRule{Field: field, NonEmpty: spec.NonEmpty, OneOf: spec.OneOf, Min: spec.Min}

	if spec.OneOfContract != "" {
		if rule.OneOf, err = c.Values(spec.OneOfContract); err != nil {
			return rule, err
		}
	}

	switch {
	case spec.Pattern != "":
		if rule.Pattern, err = regexp.Compile(spec.Pattern); err != nil {
			return rule, fmt.Errorf("pattern: %w", err)
		}
	case spec.PatternContract == ContractTimestamp:
		rule.Pattern = c.Timestamp()
	case spec.PatternContract != "":
		return rule, fmt.Errorf("unknown contract pattern %q", spec.PatternContract)
	}

	switch spec.MinContract {
	case "":
	case ContractMinAge:
		minAge := c.MinAge
		rule.Min = &minAge
	default:
		return rule, fmt.Errorf("unknown contract minimum %q", spec.MinContract)
	}
	return rule, nil
}

func profileField(name string) (envelope.Field, error) {
	for _, f := range envelope.ProfileFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown profile field %q", name)
}

// expand turns the plan's target into concrete requests using the
// session's fixtures.
func (p *Plan) expand(c *contract.Contract, fixtures fixture.Set) ([]request, error) {
	t := p.Scenario.Target
	param := p.Endpoint.Param

	var values []string
	switch {
	case t.Omit:
		return []request{p.build(param, "", true)}, nil
	case t.Fixture == FixtureFirst:
		values = []string{strconv.FormatInt(fixtures.First(), 10)}
	case t.Fixture == FixtureEach:
		for _, id := range fixtures.IDs() {
			values = append(values, strconv.FormatInt(id, 10))
		}
	case t.Contract != "":
		vals, err := c.Values(t.Contract)
		if err != nil {
			return nil, err
		}
		values = vals
	default:
		values = t.Values
	}

	reqs := make([]request, 0, len(values))
	for _, v := range values {
		reqs = append(reqs, p.build(param, v, false))
	}
	return reqs, nil
}

func (p *Plan) build(param, value string, omit bool) request {
	r := request{req: transport.Request{PathTemplate: p.Endpoint.Path}}
	if omit {
		r.target = param + " omitted"
	} else {
		r.target = param + "=" + value
	}

	if p.Scenario.Endpoint == EndpointList {
		if !omit {
			r.req.Query = transport.Query{param: value}
		}
		return r
	}

	// Omit is list-only; a profile target always fills the path.

	r.req.PathParams = map[string]string{param: value}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil && id > 0 && p.Intent.Kind.ExpectsSuccess() {
		r.targetID = id
	}
	return r
}
