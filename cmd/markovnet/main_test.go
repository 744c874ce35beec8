package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/markovnet/pkg/storage"
)

const sprinklerYAML = `
name: sprinkler
type: BayesianNetwork
variables:
  - name: Rain
    states: [no, yes]
  - name: Sprinkler
    states: [off, on]
  - name: WetGrass
    states: [dry, wet]
links:
  - {from: Rain, to: WetGrass, directed: true}
  - {from: Sprinkler, to: WetGrass, directed: true}
potentials:
  - node: Rain
    role: conditionalProbability
    variables: [Rain]
    values: [0.8, 0.2]
  - node: Sprinkler
    role: conditionalProbability
    variables: [Sprinkler]
    values: [0.6, 0.4]
  - node: WetGrass
    role: conditionalProbability
    variables: [WetGrass, Rain, Sprinkler]
    values: [1, 0, 0.2, 0.8, 0.1, 0.9, 0.05, 0.95]
`

const decisionYAML = `
name: picnic
type: InfluenceDiagram
variables:
  - name: Weather
    states: [sun, rain]
  - name: Go
    node: decision
    states: ["no", "yes"]
  - name: U
    type: numeric
    node: utility
links:
  - {from: Weather, to: Go, directed: true}
  - {from: Go, to: U, directed: true}
  - {from: Weather, to: U, directed: true}
potentials:
  - node: Weather
    role: conditionalProbability
    variables: [Weather]
    values: [0.7, 0.3]
  - node: U
    utility: U
    variables: [Go, Weather]
    values: [0, 0, 10, -5]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MARKOVNET_DATA_DIR", "")
	t.Setenv("MARKOVNET_IN_MEMORY", "")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// =============================================================================
// Network commands
// =============================================================================

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "markovnet v"+version+" ("+commit+")\n", out)
}

func TestInfo(t *testing.T) {
	path := writeFile(t, "net.yaml", sprinklerYAML)
	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sprinkler (BayesianNetwork): 3 nodes, 2 links, 3 potentials")
	assert.Contains(t, out, "NoCycle")
	assert.Contains(t, out, "check: ok")
	assert.Contains(t, out, "WetGrass (chance, finiteStates)")
}

func TestSort(t *testing.T) {
	path := writeFile(t, "net.yaml", sprinklerYAML)
	out, err := run(t, "sort", path)
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	assert.Equal(t, "WetGrass", lines[2])
}

func TestPrune(t *testing.T) {
	path := writeFile(t, "net.yaml", sprinklerYAML)

	t.Run("no evidence drops the collider", func(t *testing.T) {
		out, err := run(t, "prune", path, "--interest", "Rain")
		require.NoError(t, err)
		net, err := storage.ParseYAML([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, 1, net.NumNodes())
	})

	t.Run("observed collider keeps both causes", func(t *testing.T) {
		ev := writeFile(t, "ev.yaml", "WetGrass: wet\n")
		out, err := run(t, "prune", path, "--interest", "Rain", "--evidence", ev)
		require.NoError(t, err)
		net, err := storage.ParseYAML([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, 3, net.NumNodes())
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := run(t, "prune", path, "--interest", "Snow")
		assert.Error(t, err)
	})
}

func TestMultiply(t *testing.T) {
	path := writeFile(t, "net.yaml", sprinklerYAML)

	out, err := run(t, "multiply", path, "--keep", "WetGrass", "--workers", "2")
	require.NoError(t, err)
	// P(wet) = 0.2*0.6*0.8 + 0.8*0.4*0.9 + 0.2*0.4*0.95
	assert.InDelta(t, 0.46, cellValue(t, out, "[WetGrass=wet]"), 1e-12)
	assert.InDelta(t, 0.54, cellValue(t, out, "[WetGrass=dry]"), 1e-12)

	out, err = run(t, "multiply", path)
	require.NoError(t, err)
	assert.Equal(t, 9, strings.Count(out, "\n"))
}

// cellValue finds the row starting with label in a formatted table.
func cellValue(t *testing.T, out, label string) float64 {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, label+" ") {
			value, err := strconv.ParseFloat(strings.TrimPrefix(line, label+" "), 64)
			require.NoError(t, err)
			return value
		}
	}
	t.Fatalf("no row %s in\n%s", label, out)
	return 0
}

func TestBoundsAndDOT(t *testing.T) {
	path := writeFile(t, "id.yaml", decisionYAML)

	out, err := run(t, "bounds", path, "U")
	require.NoError(t, err)
	assert.Equal(t, "U: [-5, 10]\n", out)

	out, err = run(t, "dot", path)
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "picnic" {`)
	assert.Contains(t, out, `"Go" [shape=box`)
	assert.Contains(t, out, `"Weather" -> "U";`)
}

func TestConvert(t *testing.T) {
	path := writeFile(t, "reg.yaml", `
type: BayesianNetwork
variables:
  - name: X
    states: ["0", "1"]
  - name: Y
    type: numeric
links:
  - {from: X, to: Y, directed: true}
potentials:
  - node: X
    role: conditionalProbability
    variables: [X]
    values: [0.5, 0.5]
  - node: Y
    type: linear
    role: conditionalProbability
    variables: [Y, X]
    intercept: 1
    coefficients: [3]
`)
	out, err := run(t, "convert", path)
	require.NoError(t, err)
	net, err := storage.ParseYAML([]byte(out))
	require.NoError(t, err)
	y, err := net.Variable("Y")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, y.StateNames())
}

func TestExtend(t *testing.T) {
	path := writeFile(t, "net.yaml", `
type: BayesianNetwork
variables:
  - name: A
    states: [a0, a1]
potentials:
  - node: A
    type: delta
    role: conditionalProbability
    variables: [A]
    state: a1
`)
	out, err := run(t, "extend", path)
	require.NoError(t, err)
	assert.Contains(t, out, "a1")
}

// =============================================================================
// Snapshot commands
// =============================================================================

func TestSnapshots(t *testing.T) {
	path := writeFile(t, "net.yaml", sprinklerYAML)
	dataDir := t.TempDir()

	out, err := run(t, "save", path, "--data-dir", dataDir)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	id := fields[0]

	out, err = run(t, "list", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "sprinkler")

	out, err = run(t, "show", id, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "name: sprinkler")

	out, err = run(t, "show", "--latest", "sprinkler", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "WetGrass")

	_, err = run(t, "show", "--data-dir", dataDir)
	assert.Error(t, err)
}

func TestMetricsFlag(t *testing.T) {
	path := writeFile(t, "net.yaml", sprinklerYAML)
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"multiply", path, "--metrics"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "markovnet_algebra_operations_total")
}
