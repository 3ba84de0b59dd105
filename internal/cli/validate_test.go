package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_BuiltInSuite(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 11 scenarios valid")
}

func TestValidate_BuiltInSuiteJSON(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 11, resp.Data.Scenarios)
}

func TestValidate_UnknownContractReference(t *testing.T) {
	dir := t.TempDir()
	scenario := `
name: bad_ref
description: references a list the contract does not define
endpoint: profile
intent: enumerated_field
target: {fixture: first}
fields:
  - field: city
    one_of_contract: cities
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_ref.yaml"), []byte(scenario), 0644))

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "bad_ref")
	assert.Contains(t, out, "cities")
}

func TestValidate_InvalidContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.cue")
	require.NoError(t, os.WriteFile(path, []byte("minAge: \"eighteen\"\n"), 0644))

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), "--contract", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeContract, resp.Error.Code)
}

func TestValidate_MissingDirectory(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
