package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-notes-service/internal/config"
	"voice-notes-service/internal/service/pipeline"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "process", "destinations", "watch"})
}

func TestProcessCommand_RequiresFile(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"process"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestProcessCommand_MissingConfiguration(t *testing.T) {
	t.Setenv("STT_PROVIDER", "mock")
	t.Setenv("EXTRACTION_PROVIDER", "mock")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("GOOGLE_SHEET_ID", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_EMAIL", "")
	t.Setenv("GOOGLE_PRIVATE_KEY", "")

	file := filepath.Join(t.TempDir(), "note.webm")
	require.NoError(t, os.WriteFile(file, []byte("webm-bytes"), 0o600))

	root := newRootCommand()
	root.SetArgs([]string{"process", "--file", file, "--destination", "General"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	var runErr *pipeline.Error
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, pipeline.KindConfiguration, runErr.Kind)

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Missing, "GOOGLE_SHEET_ID")
}

func TestDestinationsCommand_MissingConfiguration(t *testing.T) {
	t.Setenv("GOOGLE_SHEET_ID", "")

	root := newRootCommand()
	root.SetArgs([]string{"destinations"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, root.Execute(), &cfgErr)
}
