package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"seed", "ingest", "enqueue", "reset", "runs", "weekly", "queues"} {
		require.True(t, names[want], "missing command %s", want)
	}
}

func TestIngestRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ingest"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.Error(t, root.Execute())
}

func TestResetRequiresConfirmation(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"reset"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.ErrorContains(t, root.Execute(), "--yes")
}
