package backend

import (
	"context"
	"testing"

	"budget_tracker/internal/config"
	"budget_tracker/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendMemory, TxMaxAttempts: 1})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &memstore.Store{}, s)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreBackend: "mongo"})
	assert.EqualError(t, err, "unsupported store backend: mongo")
}
