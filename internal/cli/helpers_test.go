package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	stiSpecsDir  = filepath.Join("..", "..", "examples", "sti")
	scenariosDir = filepath.Join("..", "..", "examples", "sti", "scenarios")
)

const cycleSpec = `package broken

entity: A: {extends: "B", properties: {id: {type: "number", primary: true}}}
entity: B: {extends: "A", properties: {}}
`

const thingSpec = `package probe

entity: Thing: properties: {
	id:    {type: "number", primary: true}
	label: {type: "string"}
}
`

// writeSpecs writes src as the only CUE file of a fresh directory.
func writeSpecs(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "specs.cue"), []byte(src), 0o644))
	return dir
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
