package server

import (
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testRegistry(t *testing.T) *TableRegistry {
	t.Helper()
	cfg := DefaultServerConfig()
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewTableRegistry(testLogger(), nil, NewSessionRegistry(), nil, metrics, cfg.TableConfig())
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := testRegistry(t)

	tbl, err := reg.Create("alice")
	require.NoError(t, err)
	defer tbl.Close("test done")

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{6}$`), tbl.ID)
	assert.Equal(t, "alice", tbl.CreatorID)
	assert.Equal(t, 1, reg.Count())

	got, hub, ok := reg.Get(tbl.ID)
	require.True(t, ok)
	assert.Same(t, tbl, got)
	assert.NotNil(t, hub)

	_, _, ok = reg.Get("ffffff")
	assert.False(t, ok)
}

func TestRegistryReapsClosedTable(t *testing.T) {
	reg := testRegistry(t)

	tbl, err := reg.Create("alice")
	require.NoError(t, err)

	tbl.Close("test done")
	<-tbl.Done()

	require.Eventually(t, func() bool {
		return reg.Count() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRegistryCloseAll(t *testing.T) {
	reg := testRegistry(t)

	for i := 0; i < 3; i++ {
		_, err := reg.Create("alice")
		require.NoError(t, err)
	}
	require.Equal(t, 3, reg.Count())

	reg.CloseAll("server shutdown")
	require.Eventually(t, func() bool {
		return reg.Count() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRegistryIDsAreUnique(t *testing.T) {
	reg := testRegistry(t)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		tbl, err := reg.Create("alice")
		require.NoError(t, err)
		assert.False(t, seen[tbl.ID])
		seen[tbl.ID] = true
	}
	reg.CloseAll("test done")
}
