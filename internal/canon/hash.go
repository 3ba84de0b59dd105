package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for an algorithm migration.
const (
	DomainVerdict = "profilecheck/verdict/v1"
	DomainFixture = "profilecheck/fixture/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// VerdictID computes the content-addressed id of a recorded verdict.
// The id is stable for identical (run, scenario, target, outcome) inputs,
// which makes re-recording a run idempotent.
func VerdictID(runID, scenario, target string, outcome map[string]any) (string, error) {
	data, err := Marshal(map[string]any{
		"run_id":   runID,
		"scenario": scenario,
		"target":   target,
		"outcome":  outcome,
	})
	if err != nil {
		return "", fmt.Errorf("VerdictID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainVerdict, data), nil
}

// FixtureDigest identifies a fixture set by provenance and ids so runs
// against the same data can be grouped.
func FixtureDigest(provenance string, ids []int64) (string, error) {
	data, err := Marshal(map[string]any{
		"provenance": provenance,
		"ids":        ids,
	})
	if err != nil {
		return "", fmt.Errorf("FixtureDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFixture, data), nil
}
