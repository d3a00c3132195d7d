package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickhohler/biographical/internal/adapters/driven/similarity"
	"github.com/rickhohler/biographical/internal/adapters/driven/storage/memory"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
)

func level(n int) *int { return &n }

func testLocations() []domain.Location {
	return []domain.Location{
		{
			LocationID: "loc-harvey",
			ModernName: "Harvey",
			AdminType:  "city",
			AdminLevel: level(8),
			Hierarchy: &domain.LocationHierarchy{
				Locality: "Harvey",
				County:   "Wells",
				State:    "North Dakota",
				Country:  "United States",
			},
			Geocode:     &domain.Geocode{Latitude: 47.7697, Longitude: -99.9357},
			ContainedBy: []string{"loc-wells"},
		},
		{
			LocationID: "loc-wells",
			ModernName: "Wells County",
			AdminType:  "county",
			AdminLevel: level(6),
			Hierarchy: &domain.LocationHierarchy{
				County:  "Wells",
				State:   "North Dakota",
				Country: "United States",
			},
			Geocode:  &domain.Geocode{Latitude: 47.59, Longitude: -99.66},
			Contains: []string{"loc-harvey", "loc-missing"},
		},
		{
			LocationID:         "loc-gdansk",
			ModernName:         "Gdańsk",
			AdminType:          "city",
			HistoricalNames:    []domain.HistoricalName{{Name: "Danzig", DateRange: "1308-1945"}},
			AlternateSpellings: []string{"Gdansk"},
			Hierarchy:          &domain.LocationHierarchy{Locality: "Gdańsk", Country: "Poland"},
			Codes:              &domain.LocationCodes{ISO31662: "PL-22"},
			Geocode:            &domain.Geocode{Latitude: 54.352, Longitude: 18.6466},
		},
		{
			LocationID: "loc-nd",
			ModernName: "North Dakota",
			AdminType:  "state",
			AdminLevel: level(4),
			Hierarchy:  &domain.LocationHierarchy{State: "North Dakota", Country: "United States"},
			Codes:      &domain.LocationCodes{ISO31662: "US-ND", FIPS: "38"},
		},
	}
}

func newLocationRegistry(t *testing.T) (*LocationRegistry, *memory.RecordStore[domain.Location]) {
	t.Helper()
	store := memory.NewRecordStore[domain.Location]().Seed(testLocations()...)
	r := NewLocationRegistry(store, similarity.NewFuzzy(), 0)
	require.NoError(t, r.Load(context.Background()))
	return r, store
}

func TestLocationRegistry_Resolve(t *testing.T) {
	r, _ := newLocationRegistry(t)

	tests := []struct {
		name      string
		query     driving.LocationQuery
		wantID    string
		wantType  domain.MatchType
		wantConf  float64
		wantEmpty bool
	}{
		{"modern name", driving.LocationQuery{Text: "harvey"}, "loc-harvey", domain.MatchExact, 1.0, false},
		{"historical name", driving.LocationQuery{Text: "Danzig"}, "loc-gdansk", domain.MatchHistorical, 1.0, false},
		{"alternate spelling", driving.LocationQuery{Text: "GDANSK"}, "loc-gdansk", domain.MatchVariant, 0.9, false},
		{"historical excluded", driving.LocationQuery{Text: "Danzig", ExcludeHistorical: true}, "", "", 0, true},
		{"country filter", driving.LocationQuery{Text: "Harvey", Country: "poland"}, "", "", 0, true},
		{"country filter matches", driving.LocationQuery{Text: "Harvey", Country: "united states"}, "loc-harvey", domain.MatchExact, 1.0, false},
		{"fuzzy", driving.LocationQuery{Text: "Harvy", Fuzzy: true}, "loc-harvey", domain.MatchFuzzy, 0, false},
		{"no fuzzy", driving.LocationQuery{Text: "Harvy"}, "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.query)
			if tt.wantEmpty {
				assert.Empty(t, got)
				return
			}
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantID, got[0].Record.LocationID)
			assert.Equal(t, tt.wantType, got[0].MatchType)
			if tt.wantConf > 0 {
				assert.InDelta(t, tt.wantConf, got[0].Confidence, 1e-9)
			}
		})
	}
}

func TestLocationRegistry_SearchExact(t *testing.T) {
	r, _ := newLocationRegistry(t)

	got := r.SearchExact("north-dakota")
	require.Len(t, got, 1)
	assert.Equal(t, "loc-nd", got[0].Record.LocationID)

	assert.Empty(t, r.SearchExact("Harvy"))
	assert.Empty(t, r.SearchExact("  "))
}

func TestLocationRegistry_SearchByCode(t *testing.T) {
	r, _ := newLocationRegistry(t)

	loc, ok := r.SearchByCode("us-nd")
	require.True(t, ok)
	assert.Equal(t, "loc-nd", loc.LocationID)

	loc, ok = r.SearchByCode(" 38 ")
	require.True(t, ok)
	assert.Equal(t, "loc-nd", loc.LocationID)

	_, ok = r.SearchByCode("DE-BY")
	assert.False(t, ok)
}

func TestLocationRegistry_SearchByCode_SharedCodeLatestWins(t *testing.T) {
	r, _ := newLocationRegistry(t)
	_, err := r.Create(domain.Location{
		LocationID: "loc-dakota-territory",
		ModernName: "Dakota Territory",
		Codes:      &domain.LocationCodes{ISO31662: "US-ND"},
	})
	require.NoError(t, err)

	loc, ok := r.SearchByCode("US-ND")
	require.True(t, ok)
	assert.Equal(t, "loc-dakota-territory", loc.LocationID)

	loc, ok = r.SearchByCode("38")
	require.True(t, ok)
	assert.Equal(t, "loc-nd", loc.LocationID, "codes not shared keep their only holder")
}

func TestLocationRegistry_SearchByHierarchy(t *testing.T) {
	r, _ := newLocationRegistry(t)

	got := r.SearchByHierarchy(domain.LocationHierarchyQuery{County: "wells", State: "NORTH DAKOTA"})
	require.Len(t, got, 2)
	assert.Equal(t, "loc-harvey", got[0].LocationID)
	assert.Equal(t, "loc-wells", got[1].LocationID)

	got = r.SearchByHierarchy(domain.LocationHierarchyQuery{Locality: "Harvey", Country: "Poland"})
	assert.Empty(t, got)

	res := r.ResolveHierarchy(domain.LocationHierarchyQuery{Country: "Poland"})
	require.Len(t, res, 1)
	assert.Equal(t, domain.MatchHierarchical, res[0].MatchType)
	assert.InDelta(t, 1.0, res[0].Confidence, 1e-9)
}

func TestLocationRegistry_SearchByCoordinates(t *testing.T) {
	r, _ := newLocationRegistry(t)

	got := r.SearchByCoordinates(47.7697, -99.9357, 50)

	require.Len(t, got, 2)
	assert.Equal(t, "loc-harvey", got[0].Location.LocationID)
	assert.InDelta(t, 0, got[0].DistanceKm, 1e-6)
	assert.Equal(t, "loc-wells", got[1].Location.LocationID)
	assert.Greater(t, got[1].DistanceKm, 20.0)
	assert.Less(t, got[1].DistanceKm, 40.0)

	assert.Empty(t, r.SearchByCoordinates(0, 0, 100))
}

func TestLocationRegistry_Distance(t *testing.T) {
	r, _ := newLocationRegistry(t)

	d, ok := r.Distance("loc-harvey", "loc-gdansk")
	require.True(t, ok)
	assert.Greater(t, d, 7000.0)

	_, ok = r.Distance("loc-harvey", "loc-nd")
	assert.False(t, ok, "state has no coordinates")

	_, ok = r.Distance("loc-harvey", "nowhere")
	assert.False(t, ok)
}

func TestLocationRegistry_Relationships(t *testing.T) {
	r, _ := newLocationRegistry(t)

	parents := r.FindContainedBy("loc-harvey")
	require.Len(t, parents, 1)
	assert.Equal(t, "loc-wells", parents[0].LocationID)

	children := r.FindContains("loc-wells")
	require.Len(t, children, 1, "unknown ids are skipped")
	assert.Equal(t, "loc-harvey", children[0].LocationID)

	assert.Empty(t, r.FindContains("nowhere"))
}

func TestLocationRegistry_CountryAndList(t *testing.T) {
	r, _ := newLocationRegistry(t)

	assert.Len(t, r.FindByCountry("UNITED STATES"), 3)
	assert.ElementsMatch(t, []string{"united states", "poland"}, r.Countries())

	cities := r.List(driving.LocationFilter{AdminType: "city"})
	assert.Len(t, cities, 2)

	usCities := r.List(driving.LocationFilter{AdminType: "city", Country: "United States"})
	require.Len(t, usCities, 1)
	assert.Equal(t, "loc-harvey", usCities[0].LocationID)

	assert.Len(t, r.List(driving.LocationFilter{}), 4)
}

func TestLocationRegistry_Statistics(t *testing.T) {
	r, _ := newLocationRegistry(t)

	stats := r.Statistics()

	assert.Equal(t, 4, stats.TotalLocations)
	assert.Equal(t, map[string]int{"city": 2, "county": 1, "state": 1}, stats.ByAdminType)
	assert.Equal(t, map[string]int{"United States": 3, "Poland": 1}, stats.ByCountry)
	assert.Equal(t, map[string]int{"8": 1, "6": 1, "4": 1}, stats.ByAdminLevel)
	assert.Equal(t, 3, stats.WithCoordinates)
	assert.Equal(t, 1, stats.WithHistoricalNames)
}

func TestLocationRegistry_CRUDAndSave(t *testing.T) {
	ctx := context.Background()
	r, store := newLocationRegistry(t)

	_, err := r.Create(domain.Location{LocationID: "loc-minot", ModernName: "Minot"})
	require.NoError(t, err)
	_, err = r.Create(domain.Location{LocationID: "loc-minot", ModernName: "Minot"})
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	bad := domain.Location{LocationID: "loc-bad", ModernName: "Bad", Geocode: &domain.Geocode{Latitude: 120}}
	_, err = r.Create(bad)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	loc, ok := r.Read("loc-minot")
	require.True(t, ok)
	loc.AlternateSpellings = []string{"Minot City"}
	_, err = r.Update(loc)
	require.NoError(t, err)
	assert.Len(t, r.SearchExact("minot city"), 1)

	assert.True(t, r.Delete("loc-gdansk"))
	assert.False(t, r.Delete("loc-gdansk"))
	assert.Empty(t, r.SearchExact("Danzig"))

	require.NoError(t, r.Save(ctx))
	assert.Len(t, store.Records(), 4)
	assert.Equal(t, 4, r.Len())
}
