package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %s not registered", name)
	return nil
}

func TestCLICommands(t *testing.T) {
	app := newCLI()

	serve := findCommand(t, app, "serve")
	assert.NotNil(t, serve.Action)

	run := findCommand(t, app, "run")
	require.NotNil(t, run.Action)

	var dryRun *cli.BoolFlag
	for _, flag := range run.Flags {
		if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "dry-run" {
			dryRun = f
		}
	}
	require.NotNil(t, dryRun)
	assert.False(t, dryRun.Value)
}

func TestCLIConfigFlagReadsEnv(t *testing.T) {
	app := newCLI()

	var configFlag *cli.StringFlag
	for _, flag := range app.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == "config" {
			configFlag = f
		}
	}
	require.NotNil(t, configFlag)
	assert.Equal(t, []string{"INGESTOR_CONFIG"}, configFlag.EnvVars)
}

func TestCLIRejectsUnknownFlag(t *testing.T) {
	app := newCLI()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run([]string{"announcementingestor", "run", "--no-such-flag"})
	assert.Error(t, err)
}
