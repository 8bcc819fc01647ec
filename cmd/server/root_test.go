package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cocktail-hub/internal/config"
)

func TestRecomputeNeedsPersistentStore(t *testing.T) {
	assert.Error(t, checkRecomputeBackend(config.Config{StoreBackend: config.BackendMemory}))
	assert.Error(t, checkRecomputeBackend(config.Config{}))
	assert.NoError(t, checkRecomputeBackend(config.Config{StoreBackend: config.BackendMySQL}))
}

func TestRecomputeRefusesMemoryBackendBeforeWiring(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_BACKEND", config.BackendMemory)
	cmd := newRootCmd()
	cmd.SetArgs([]string{"recompute-ratings"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "reconcile", "recompute-ratings"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	sub, _, err := root.Find([]string{"recompute-ratings"})
	require.NoError(t, err)
	fix := sub.Flags().Lookup("fix")
	require.NotNil(t, fix)
	assert.Equal(t, "false", fix.DefValue)
}
