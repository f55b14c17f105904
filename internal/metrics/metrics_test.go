package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := New()
	c.ObserveQuery(time.Now(), nil)
	c.ObserveQuery(time.Now(), nil)
	c.ObserveQuery(time.Now(), errors.New("boom"))
	c.IncFetched()
	c.IncUnsupported()
	c.IncCycle()
	c.IncRecord("document")
	c.IncRecord("document")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Queries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Fetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Unsupported))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Records.WithLabelValues("document")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveQuery(time.Now(), nil)
		c.IncFetched()
		c.IncUnsupported()
		c.IncCycle()
		c.IncRecord("variable")
	})
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := New()
	c.IncFetched()
	path := filepath.Join(t.TempDir(), "cpharvest.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cpharvest_resources_fetched_total 1")
}
