package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsOperations(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	c.RecordOperation(ctx, OpExtractTurn, "success", 120)
	c.RecordOperation(ctx, OpExtractTurn, "success", 80)
	c.RecordError(ctx, OpRespond, "network")
	c.SetStorageCount(ctx, "entities", 7)

	ops := testutil.ToFloat64(c.operationsTotal.WithLabelValues(OpExtractTurn, "success"))
	assert.Equal(t, 2.0, ops)

	errs := testutil.ToFloat64(c.errorsTotal.WithLabelValues(OpRespond, "network"))
	assert.Equal(t, 1.0, errs)

	gauge := testutil.ToFloat64(c.storageCount.WithLabelValues("entities"))
	assert.Equal(t, 7.0, gauge)
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	require.NotSame(t, a.Registry(), b.Registry())

	a.RecordOperation(context.Background(), OpConfirm, "success", 5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.operationsTotal.WithLabelValues(OpConfirm, "success")))
}

func TestNoopCollector(t *testing.T) {
	var c Collector = NewNoopCollector()
	ctx := context.Background()

	// Must not panic or require any setup.
	c.RecordOperation(ctx, OpCompact, "success", 1)
	c.RecordError(ctx, OpCompact, "unknown")
	c.SetStorageCount(ctx, "memories", 3)
}
