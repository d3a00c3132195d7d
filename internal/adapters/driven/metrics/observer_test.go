package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickhohler/biographical/internal/adapters/driven/metrics"
	"github.com/rickhohler/biographical/internal/adapters/driven/similarity"
	"github.com/rickhohler/biographical/internal/adapters/driven/storage/memory"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/core/services"
)

func TestObserver_Counts(t *testing.T) {
	o := metrics.New(prometheus.NewRegistry())

	o.Mutated("persons", "create")
	o.Mutated("persons", "create")
	o.Mutated("persons", "delete")
	o.Resolved("names", domain.MatchCognate)
	o.Rebuilt("locations", 42, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.Mutations.WithLabelValues("persons", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Mutations.WithLabelValues("persons", "delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Matches.WithLabelValues("names", "cognate")))
	assert.Equal(t, 42.0, testutil.ToFloat64(o.RecordCount.WithLabelValues("locations")))
	assert.Equal(t, 1, testutil.CollectAndCount(o.RebuildTimes))
}

func TestObserver_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	assert.Panics(t, func() { metrics.New(reg) }, "duplicate registration must be reported")
}

func TestObserver_WiredIntoRegistry(t *testing.T) {
	ctx := context.Background()
	o := metrics.New(prometheus.NewRegistry())
	store := memory.NewRecordStore[domain.Location]().Seed(domain.Location{
		LocationID:         "loc-harvey",
		ModernName:         "Harvey",
		AlternateSpellings: []string{"Harvy"},
	})
	locs := services.NewLocationRegistry(store, similarity.NewFuzzy(), 0, services.WithObserver(o))
	require.NoError(t, locs.Load(ctx))

	_, err := locs.Create(domain.Location{LocationID: "loc-wells", ModernName: "Wells"})
	require.NoError(t, err)
	locs.Resolve(driving.LocationQuery{Text: "Harvey"})
	locs.Resolve(driving.LocationQuery{Text: "Harvy"})

	assert.Equal(t, 1.0, testutil.ToFloat64(o.Mutations.WithLabelValues("locations", "load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Mutations.WithLabelValues("locations", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Matches.WithLabelValues("locations", "exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Matches.WithLabelValues("locations", "variant")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.RecordCount.WithLabelValues("locations")))
}
