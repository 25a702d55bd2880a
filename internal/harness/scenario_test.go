package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sumstate/internal/record"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "sum_overwrite.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sum_overwrite", scenario.Name)
	require.Len(t, scenario.Accounts, 1)
	assert.Equal(t, "counter", scenario.Accounts[0].Name)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, []string{"counter"}, scenario.Steps[0].Accounts)
	assert.Equal(t, &record.Record{A: 1, B: 0, Total: 0}, scenario.Steps[0].Payload)
	assert.Equal(t, "OK", scenario.Steps[1].Expect.Status)
	assert.Equal(t, &record.Record{A: 1, B: 2, Total: 3}, scenario.Steps[1].Expect.Record)
	assert.Len(t, scenario.Assertions, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioDir(t *testing.T) {
	scenarios, err := LoadScenarioDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.Len(t, scenarios, 3)
	assert.Equal(t, "rejections", scenarios[0].Name)
	assert.Equal(t, "sum_overwrite", scenarios[1].Name)
	assert.Equal(t, "wraparound", scenarios[2].Name)
}

func TestLoadScenarioDir_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\n"), 0644))

	_, err := LoadScenarioDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestParseScenario_Rejects(t *testing.T) {
	const step = `
steps:
  - accounts: [a]
    payload: {a: 1, b: 2, total: 0}
`
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstpes: []\n" + step,
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\n" + step,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\n" + step,
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name: "step without payload",
			yaml: `
name: x
description: d
steps:
  - accounts: [a]
`,
			wantErr: "payload or payload_hex is required",
		},
		{
			name: "both payload forms",
			yaml: `
name: x
description: d
steps:
  - accounts: [a]
    payload: {a: 1, b: 1, total: 0}
    payload_hex: "00"
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "bad payload hex",
			yaml: `
name: x
description: d
steps:
  - accounts: [a]
    payload_hex: "zz"
`,
			wantErr: "payload_hex",
		},
		{
			name: "duplicate account",
			yaml: `
name: x
description: d
accounts:
  - name: a
  - name: a
` + step,
			wantErr: "duplicate name",
		},
		{
			name: "record and data",
			yaml: `
name: x
description: d
accounts:
  - name: a
    record: {a: 1, b: 1, total: 2}
    data: "00"
` + step,
			wantErr: "mutually exclusive",
		},
		{
			name: "expect without status",
			yaml: `
name: x
description: d
steps:
  - accounts: [a]
    payload: {a: 1, b: 2, total: 0}
    expect:
      record: {a: 1, b: 2, total: 3}
`,
			wantErr: "status is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: d\n" + step + `
assertions:
  - type: trace_contains
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "final_record without record",
			yaml: "name: x\ndescription: d\naccounts:\n  - name: a\n" + step + `
assertions:
  - type: final_record
    account: a
`,
			wantErr: "record is required",
		},
		{
			name: "assertion on undeclared account",
			yaml: "name: x\ndescription: d\n" + step + `
assertions:
  - type: unchanged
    account: nobody
`,
			wantErr: "unknown account",
		},
		{
			name: "negative count",
			yaml: "name: x\ndescription: d\n" + step + `
assertions:
  - type: status_count
    status: OK
    count: -1
`,
			wantErr: "non-negative",
		},
		{
			name: "value out of uint32 range",
			yaml: `
name: x
description: d
steps:
  - accounts: [a]
    payload: {a: 4294967296, b: 0, total: 0}
`,
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
