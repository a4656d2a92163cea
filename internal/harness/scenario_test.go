package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/import_chain.yaml")
	require.NoError(t, err)

	assert.Equal(t, "import_chain", scenario.Name)
	assert.Contains(t, scenario.Schema, "type: Quote")
	require.Len(t, scenario.Steps, 7)

	assert.Equal(t, OpCreate, scenario.Steps[0].Op)
	assert.Nil(t, scenario.Steps[0].Imports, "omitted imports stay nil")
	assert.Equal(t, []string{"A"}, scenario.Steps[1].Imports)

	save := scenario.Steps[2]
	assert.Equal(t, "a1", save.As)
	assert.Equal(t, "IBM", save.Record["Ticker"])
	assert.Equal(t, 1.5, save.Record["Price"])

	assert.True(t, scenario.Steps[5].Expect.Null)
	assert.Equal(t, []string{"B", "A", "root"}, scenario.Steps[6].Expect.Lookup)
	require.Len(t, scenario.Assertions, 3)
}

func TestLoadScenario_EmptyImportsKept(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: x
description: x
steps:
  - op: create
    name: A
    imports: []
`))
	require.NoError(t, err)
	assert.NotNil(t, scenario.Steps[0].Imports)
	assert.Empty(t, scenario.Steps[0].Imports)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: x
description: x
step:
  - op: lookup
    dataset: root
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"missing name", "description: x\nsteps: [{op: lookup, dataset: root}]", "name is required"},
		{"missing description", "name: x\nsteps: [{op: lookup, dataset: root}]", "description is required"},
		{"no steps", "name: x\ndescription: x", "steps list is required"},
		{"negative prefetch", "name: x\ndescription: x\nprefetch: -1\nsteps: [{op: lookup, dataset: root}]", "prefetch"},
		{"missing op", "name: x\ndescription: x\nsteps: [{dataset: root}]", "op is required"},
		{"unknown op", "name: x\ndescription: x\nsteps: [{op: merge}]", `unknown op "merge"`},
		{"create without name", "name: x\ndescription: x\nsteps: [{op: create}]", "name is required for create"},
		{"save without record", "name: x\ndescription: x\nsteps: [{op: save, type: Q, dataset: A}]", "record is required"},
		{"load without key", "name: x\ndescription: x\nsteps: [{op: load, type: Q, dataset: A}]", "key is required for load"},
		{"load_id without id", "name: x\ndescription: x\nsteps: [{op: load_id, type: Q}]", "id is required for load_id"},
		{"null and record", "name: x\ndescription: x\nsteps: [{op: load, type: Q, dataset: A, key: K, expect: {'null': true, record: {P: 1}}}]", "mutually exclusive"},
		{"assertion without type", "name: x\ndescription: x\nsteps: [{op: lookup, dataset: root}]\nassertions: [{op: save}]", "type is required"},
		{"unknown assertion", "name: x\ndescription: x\nsteps: [{op: lookup, dataset: root}]\nassertions: [{type: final_state}]", "unknown assertion type"},
		{"trace_count without op", "name: x\ndescription: x\nsteps: [{op: lookup, dataset: root}]\nassertions: [{type: trace_count}]", "op is required for trace_count"},
		{"trace_order without ids", "name: x\ndescription: x\nsteps: [{op: lookup, dataset: root}]\nassertions: [{type: trace_order}]", "ids list is required"},
		{"versions without type", "name: x\ndescription: x\nsteps: [{op: lookup, dataset: root}]\nassertions: [{type: versions}]", "record_type is required"},
		{"negative count", "name: x\ndescription: x\nsteps: [{op: lookup, dataset: root}]\nassertions: [{type: trace_count, op: save, count: -1}]", "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
