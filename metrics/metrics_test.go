package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/timesheet"
	"github.com/dpanfilo/enforcer/timesheet/store"
)

func TestRecordAnalysis(t *testing.T) {
	before := testutil.ToFloat64(AnalysesTotal.WithLabelValues("team", "error"))

	RecordAnalysis("team", time.Now(), errors.New("source down"))
	RecordAnalysis("team", time.Now(), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(AnalysesTotal.WithLabelValues("team", "error")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(AnalysisDuration), 1)
}

func TestRecordFlagAndRows(t *testing.T) {
	flags := testutil.ToFloat64(FlagsTotal.WithLabelValues("Weekend Work", "low"))
	rows := testutil.ToFloat64(RowsFetched)

	RecordFlag("Weekend Work", "low")
	RecordRows(250)

	assert.Equal(t, flags+1, testutil.ToFloat64(FlagsTotal.WithLabelValues("Weekend Work", "low")))
	assert.Equal(t, rows+250, testutil.ToFloat64(RowsFetched))
}

func TestRecordLookup(t *testing.T) {
	ok := testutil.ToFloat64(RegistryLookups.WithLabelValues("success"))
	failed := testutil.ToFloat64(RegistryLookups.WithLabelValues("error"))

	RecordLookup(nil)
	RecordLookup(errors.New("timeout"))

	assert.Equal(t, ok+1, testutil.ToFloat64(RegistryLookups.WithLabelValues("success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(RegistryLookups.WithLabelValues("error")))
}

func TestInstrumentRegistry(t *testing.T) {
	assert.Nil(t, InstrumentRegistry(nil))

	mem := store.NewMemory()
	mem.AddJob(timesheet.JobDetail{Code: "ABC-25-00001"})
	reg := InstrumentRegistry(mem)

	ok := testutil.ToFloat64(RegistryLookups.WithLabelValues("success"))
	found, err := reg.LookupJobs(context.Background(), []string{"ABC-25-00001"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, ok+1, testutil.ToFloat64(RegistryLookups.WithLabelValues("success")))
}
