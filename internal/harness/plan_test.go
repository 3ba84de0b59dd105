package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilecheck/internal/conformance"
	"github.com/roach88/profilecheck/internal/contract"
	"github.com/roach88/profilecheck/internal/envelope"
	"github.com/roach88/profilecheck/internal/fixture"
	"github.com/roach88/profilecheck/internal/transport"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestCompile_ResolvesContractReferences(t *testing.T) {
	s := mustParse(t, `
name: fmt
description: formats
endpoint: profile
intent: enumerated_field
target:
  fixture: first
fields:
  - field: age
    min_contract: min_age
  - field: gender
    one_of_contract: categories
  - field: registrationDate
    pattern_contract: timestamp
`)
	plan, err := Compile(s, contract.Default())
	require.NoError(t, err)

	assert.Equal(t, conformance.EnumeratedField, plan.Intent.Kind)
	assert.Equal(t, envelope.PayloadProfile, plan.Intent.Payload)
	assert.Equal(t, "/api/test/user/{id}", plan.Endpoint.Path)
	require.Len(t, plan.Intent.Fields, 3)

	require.NotNil(t, plan.Intent.Fields[0].Min)
	assert.Equal(t, int64(18), *plan.Intent.Fields[0].Min)
	assert.Equal(t, []string{"male", "female", "magic", "McCloud"}, plan.Intent.Fields[1].OneOf)
	require.NotNil(t, plan.Intent.Fields[2].Pattern)
	assert.True(t, plan.Intent.Fields[2].Pattern.MatchString("2020-01-01T00:00:00"))

	assert.Equal(t, "isSuccess", plan.Intent.Documented[envelope.FieldSuccess])
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"unknown intent", `
name: x
description: y
endpoint: list
intent: teapot
target: {values: [any]}
`, "unknown intent"},
		{"unknown profile field", `
name: x
description: y
endpoint: profile
intent: enumerated_field
target: {fixture: first}
fields: [{field: email, non_empty: true}]
`, "unknown profile field"},
		{"unknown contract list", `
name: x
description: y
endpoint: profile
intent: enumerated_field
target: {fixture: first}
fields: [{field: city, one_of_contract: cities}]
`, "unknown contract list"},
		{"bad pattern", `
name: x
description: y
endpoint: profile
intent: enumerated_field
target: {fixture: first}
fields: [{field: city, pattern: "(["}]
`, "pattern"},
		{"rule without constraint", `
name: x
description: y
endpoint: profile
intent: enumerated_field
target: {fixture: first}
fields: [{field: city}]
`, "has no constraint"},
		{"enumerated without rules", `
name: x
description: y
endpoint: profile
intent: enumerated_field
target: {fixture: first}
`, "at least one field rule"},
		{"unknown target list", `
name: x
description: y
endpoint: list
intent: valid_lookup
target: {contract: colors}
`, "unknown contract list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(mustParse(t, tt.src), contract.Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpand(t *testing.T) {
	c := contract.Default()
	fixtures := fixture.NewSet([]int64{4, 9}, fixture.Discovered)

	expand := func(src string) []request {
		t.Helper()
		plan, err := Compile(mustParse(t, src), c)
		require.NoError(t, err)
		reqs, err := plan.expand(c, fixtures)
		require.NoError(t, err)
		return reqs
	}

	t.Run("fixture first", func(t *testing.T) {
		reqs := expand("name: a\ndescription: b\nendpoint: profile\nintent: valid_lookup\ntarget: {fixture: first}\n")
		require.Len(t, reqs, 1)
		assert.Equal(t, "id=4", reqs[0].target)
		assert.Equal(t, int64(4), reqs[0].targetID)
		assert.Equal(t, map[string]string{"id": "4"}, reqs[0].req.PathParams)
	})

	t.Run("fixture each", func(t *testing.T) {
		reqs := expand("name: a\ndescription: b\nendpoint: profile\nintent: valid_lookup\ntarget: {fixture: each}\n")
		require.Len(t, reqs, 2)
		assert.Equal(t, "id=9", reqs[1].target)
	})

	t.Run("literal values on error intent carry no target id", func(t *testing.T) {
		reqs := expand("name: a\ndescription: b\nendpoint: profile\nintent: out_of_range\ntarget: {values: [\"2147483647\"]}\n")
		require.Len(t, reqs, 1)
		assert.Zero(t, reqs[0].targetID)
	})

	t.Run("empty path parameter", func(t *testing.T) {
		reqs := expand("name: a\ndescription: b\nendpoint: profile\nintent: missing_parameter\ntarget: {values: [\"\"]}\n")
		require.Len(t, reqs, 1)
		assert.Equal(t, "id=", reqs[0].target)
		path, err := reqs[0].req.Path()
		require.NoError(t, err)
		assert.Equal(t, "/api/test/user/", path)
	})

	t.Run("contract categories on list", func(t *testing.T) {
		reqs := expand("name: a\ndescription: b\nendpoint: list\nintent: valid_lookup\ntarget: {contract: categories}\n")
		require.Len(t, reqs, 4)
		assert.Equal(t, transport.Query{"gender": "McCloud"}, reqs[3].req.Query)
		assert.Equal(t, "gender=McCloud", reqs[3].target)
	})

	t.Run("omitted query parameter", func(t *testing.T) {
		reqs := expand("name: a\ndescription: b\nendpoint: list\nintent: missing_parameter\ntarget: {omit: true}\n")
		require.Len(t, reqs, 1)
		assert.Nil(t, reqs[0].req.Query)
		assert.Equal(t, "gender omitted", reqs[0].target)
	})
}
