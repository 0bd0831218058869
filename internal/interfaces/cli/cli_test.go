package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestRankCommand_StdinToStdout(t *testing.T) {
	csvIn := "potency,toxicity\n1.0,0.5\n2.0,0.2\n"
	out, err := runCommand(t, csvIn, "rank", "-d", "max,min")
	require.NoError(t, err)
	assert.Equal(t, "potency,toxicity,pareto_rank\n1,0.5,2\n2,0.2,1\n", out)
}

func TestRankCommand_Files(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.csv")
	outPath := filepath.Join(dir, "out.csv")
	snapPath := filepath.Join(dir, "snap.csv")
	require.NoError(t, os.WriteFile(inPath,
		[]byte("molecule,potency,toxicity\na,1.0,0.5\nb,,0.1\nc,2.0,0.2\n"), 0o644))

	_, err := runCommand(t, "", "rank",
		"-i", inPath, "-o", outPath,
		"--objectives", "potency,toxicity",
		"-d", "max,min",
		"--snapshot", snapPath)
	require.NoError(t, err)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "molecule,potency,toxicity,pareto_rank\na,1,0.5,2\nb,,0.1,\nc,2,0.2,1\n", string(out))

	snap, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.Equal(t, "potency,toxicity\n1,0.5\n2,0.2\n", string(snap))
}

func TestRankCommand_BadDirections(t *testing.T) {
	_, err := runCommand(t, "a\n1\n", "rank", "-d", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min")
}

func TestRankCommand_DirectionCountMismatch(t *testing.T) {
	_, err := runCommand(t, "a,b\n1,2\n", "rank", "-d", "max")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directions")
}

func TestOverlapCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "", "overlap",
		"--polygon1", "[[0,0],[2,0],[2,2],[0,2]]",
		"--polygon2", "[[1,1],[3,1],[3,3],[1,3]]",
		"--reference", "1",
		"--json")
	require.NoError(t, err)

	var res overlapResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 4.0, res.Area1, 1e-9)
	assert.InDelta(t, 4.0, res.Area2, 1e-9)
	assert.InDelta(t, 1.0, res.Intersection, 1e-9)
	assert.InDelta(t, 6.0, res.NonOverlap, 1e-9)
	require.NotNil(t, res.DifferenceArea)
	assert.InDelta(t, 3.0, *res.DifferenceArea, 1e-9)
}

func TestOverlapCommand_Table(t *testing.T) {
	out, err := runCommand(t, "", "overlap",
		"--polygon1", "[[0,0],[1,0],[1,1],[0,1]]",
		"--polygon2", "[[0,0],[1,0],[1,1],[0,1]]")
	require.NoError(t, err)
	assert.Contains(t, out, "intersection")
	assert.Contains(t, out, "non_overlap")
	assert.NotContains(t, out, "difference_area")
}

func TestOverlapCommand_Invalid(t *testing.T) {
	_, err := runCommand(t, "", "overlap",
		"--polygon1", "not json",
		"--polygon2", "[[0,0],[1,0],[1,1]]")
	require.Error(t, err)

	_, err = runCommand(t, "", "overlap",
		"--polygon1", "[[0,0],[1,0]]",
		"--polygon2", "[[0,0],[1,0],[1,1]]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 vertices")
}

func TestParsePolygon(t *testing.T) {
	poly, err := parsePolygon("[[0,0],[2,0],[1,2]]")
	require.NoError(t, err)
	require.Len(t, poly, 3)
	assert.Equal(t, 2.0, poly[1].X)

	_, err = parsePolygon("[[0,0,0]]")
	require.Error(t, err)
}
