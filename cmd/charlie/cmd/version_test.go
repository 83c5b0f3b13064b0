package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlielabs/charlie/pkg/version"
)

func TestVersionCmd_Default(t *testing.T) {
	output, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "charlie")
	assert.Contains(t, output, version.Version)
	assert.Contains(t, output, "commit:")
}

func TestVersionCmd_Short(t *testing.T) {
	output, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(output))
}

func TestVersionCmd_JSON(t *testing.T) {
	output, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(output), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestVersionCmd_ShortTakesPrecedence(t *testing.T) {
	output, err := execute(t, "version", "--short", "--json")
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(output))
}
