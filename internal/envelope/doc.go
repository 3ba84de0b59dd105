// Package envelope normalizes the profile API's heterogeneous response
// bodies into a single canonical model.
//
// The API mixes naming conventions across endpoints and releases: the
// success flag may arrive as isSuccess or success, the identifier list as
// idList or result. An AliasTable maps each canonical field to the source
// names that may carry it. Decoding never fails on missing or mistyped
// fields; each optional value records whether it was absent, null, present
// or malformed, and the envelope remembers which source name supplied each
// field so naming drift can be reported as evidence.
//
// Usage:
//
//	env, err := envelope.Decode(resp.StatusCode, resp.Body)
//	if envelope.IsDecodeError(err) {
//	    // body was not JSON; the observation is inconclusive
//	}
package envelope
