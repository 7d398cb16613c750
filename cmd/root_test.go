package main

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keyword-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "batch", "serve", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "keyword-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "config.yaml")
	assert.Contains(t, rootCmd.Long, "KEYWORD_ANTHROPIC_KEY")
}

func TestApplyLogFlags(t *testing.T) {
	newFlags := func(args ...string) *pflag.FlagSet {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		addLogFlags(fs)
		require.NoError(t, fs.Parse(args))
		return fs
	}

	t.Run("unset flags keep config", func(t *testing.T) {
		lc := config.LogConfig{Level: "info", Format: "json"}
		applyLogFlags(newFlags(), &lc)
		assert.Equal(t, config.LogConfig{Level: "info", Format: "json"}, lc)
	})

	t.Run("flags override config", func(t *testing.T) {
		lc := config.LogConfig{Level: "info", Format: "json"}
		applyLogFlags(newFlags("--log-level", "debug", "--log-format", "console"), &lc)
		assert.Equal(t, config.LogConfig{Level: "debug", Format: "console"}, lc)
	})
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "brand", "product", "locale", "k", "top", "max-rows", "weights", "skip-topics", "output-dir", "no-store"} {
		require.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s flag", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "batch command should have --file flag")
	assert.Equal(t, "stringSlice", flag.Value.Type())
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
