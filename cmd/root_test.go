package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "linkctl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "linkctl version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "linkctl version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}

	for _, expected := range []string{"version", "serve", "links"} {
		assert.True(t, found[expected], "expected subcommand %s to be registered", expected)
	}
}

func TestLinksSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range linksCmd.Commands() {
		found[c.Name()] = true
	}

	for _, expected := range []string{"list", "add", "update", "delete"} {
		assert.True(t, found[expected], "expected links subcommand %s to be registered", expected)
	}
}

func TestServeFlags(t *testing.T) {
	for _, name := range []string{"config", "debug", "log-json"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestLinksAddRequiresTargetAndEnv(t *testing.T) {
	for _, name := range []string{"target", "env"} {
		flag := linksAddCmd.Flags().Lookup(name)
		require.NotNil(t, flag)
		assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("9.9.9")
	var buf bytes.Buffer
	versionCmd := newVersionCmd()
	versionCmd.SetOut(&buf)

	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "linkctl version 9.9.9\n", buf.String())
}
