package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/preference"
)

func TestStartupMode(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	store := preference.New(preference.Options{Logger: logger})
	require.NoError(t, store.Initialize(model.ModeDark, "theme-preference"))

	mode, ok := startupMode(store, logger)
	assert.True(t, ok)
	assert.Equal(t, model.ModeDark, mode)
	assert.Empty(t, logs.String())

	require.NoError(t, store.Close())
	mode, ok = startupMode(store, logger)
	assert.False(t, ok)
	assert.Empty(t, mode)
	assert.Contains(t, logs.String(), "failed to read theme preference")
	assert.Contains(t, logs.String(), preference.ErrClosed.Error())
}
