// Package fixture discovers identifiers that exist on the target API so
// scenarios never depend on hardcoded data.
//
// Discovery runs once per session. If the listing call fails in any way,
// the documented fallback ids are substituted and the set is marked
// degraded so that downstream verdicts can carry the provenance as
// evidence.
package fixture
