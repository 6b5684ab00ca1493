package main

import (
	"flag"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, value := range args {
		set.String(name, value, "")
	}
	return cli.NewContext(&cli.App{Name: "corpus"}, set, nil)
}

func TestSetupLoggerLevels(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		ctx := newTestContext(t, map[string]string{"log-level": level})
		assert.NoError(t, setupLogger(ctx), "level %q should be accepted", level)
	}
}

func TestSetupLoggerInvalidLevel(t *testing.T) {
	ctx := newTestContext(t, map[string]string{"log-level": "verbose"})
	err := setupLogger(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestIngestRequiresFiles(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, set.Parse(nil))
	ctx := cli.NewContext(&cli.App{Name: "corpus"}, set, nil)

	err := ingestCommand(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one file")
}

func TestSearchRequiresQuery(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, set.Parse(nil))
	ctx := cli.NewContext(&cli.App{Name: "corpus"}, set, nil)

	err := searchCommand(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestDocumentIDArg(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, set.Parse([]string{"doc-123"}))
	ctx := cli.NewContext(&cli.App{Name: "corpus"}, set, nil)

	id, err := documentIDArg(ctx)
	require.NoError(t, err)
	assert.Equal(t, "doc-123", string(id))
}

func TestDocumentIDArgMissing(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, set.Parse(nil))
	ctx := cli.NewContext(&cli.App{Name: "corpus"}, set, nil)

	_, err := documentIDArg(ctx)
	require.Error(t, err)
}

func TestSetupLoadsWithoutEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	ctx := newTestContext(t, map[string]string{"log-level": "info"})
	assert.NoError(t, setup(ctx), "a missing .env must not fail startup")
}
