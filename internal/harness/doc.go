// Package harness runs conformance scenarios against a profile API.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: profile_invalid_id
//	description: "Negative identifier must be rejected"
//	endpoint: profile          # profile | list
//	intent: invalid_parameter  # see conformance.IntentKinds
//	target:
//	  values: ["-1"]           # or fixture: first|each, contract: categories, omit: true
//	statuses: [400]            # optional narrowing of accepted error statuses
//	fields:                    # enumerated_field rules
//	  - field: gender
//	    one_of_contract: categories
//
// Each target value becomes one request and one verdict. A scenario fails
// when any verdict is a violation and is inconclusive when a request could
// not be completed or its body could not be parsed.
package harness
