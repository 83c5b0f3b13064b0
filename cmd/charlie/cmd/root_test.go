package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	output, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "charlie")
	assert.Contains(t, output, "Usage:")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	output, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "charlie version")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "index")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "version")
}

func TestRootCmd_HasOfflineFlag(t *testing.T) {
	flag := NewRootCmd().Flags().Lookup("offline")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRootCmd_HasReindexFlag(t *testing.T) {
	flag := NewRootCmd().Flags().Lookup("reindex")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestIndexCmd_ShowsHelp(t *testing.T) {
	output, err := execute(t, "index", "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "index")
	assert.Contains(t, output, "--reindex")
}

func TestSearchCmd_ShowsHelp(t *testing.T) {
	output, err := execute(t, "search", "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "search")
	assert.Contains(t, output, "--top-k")
}
