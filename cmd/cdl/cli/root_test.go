package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["cp"])
	assert.True(t, names["query"])
	assert.True(t, names["mount"])
}

func TestCpCmd_RejectsWrongArgCount(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"cp", "onlyone"})
	root.SetOut(new(nopWriter))
	root.SetErr(new(nopWriter))
	err := root.Execute()
	require.Error(t, err)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
