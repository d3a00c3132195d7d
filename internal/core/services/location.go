package services

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/matching"
)

// Ensure LocationRegistry implements the interface.
var _ driving.LocationService = (*LocationRegistry)(nil)

// Location index names.
const (
	LocationIndexName       = "name"
	LocationIndexHistorical = "historical"
	LocationIndexAlternate  = "alternate"
	LocationIndexCountry    = "country"
	LocationIndexCode       = "code"
)

// LocationKind names the location registry in logs, metrics and documents.
const LocationKind = "locations"

func locationSpecs() []IndexSpec[domain.Location] {
	return []IndexSpec[domain.Location]{
		{Name: LocationIndexName, Keys: func(l domain.Location) []string {
			return []string{l.ModernName}
		}},
		{Name: LocationIndexHistorical, Keys: func(l domain.Location) []string {
			out := make([]string, 0, len(l.HistoricalNames))
			for _, h := range l.HistoricalNames {
				out = append(out, h.Name)
			}
			return out
		}},
		{Name: LocationIndexAlternate, Keys: func(l domain.Location) []string {
			return l.AlternateSpellings
		}},
		{Name: LocationIndexCountry, Keys: func(l domain.Location) []string {
			return []string{l.Country()}
		}},
		{Name: LocationIndexCode, Key: codeKey, Keys: func(l domain.Location) []string {
			if l.Codes == nil {
				return nil
			}
			return l.Codes.All()
		}},
	}
}

func codeKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LocationRegistry holds place records and resolves place names.
type LocationRegistry struct {
	reg      *Registry[domain.Location]
	resolver *Resolver[domain.Location]
}

// NewLocationRegistry creates a location registry over store. provider
// scores fuzzy candidates; threshold is the default fuzzy threshold.
func NewLocationRegistry(store driven.RecordStore[domain.Location], provider driven.SimilarityProvider, threshold float64, opts ...RegistryOption) *LocationRegistry {
	reg := NewRegistry(LocationKind, store, locationSpecs(), opts...)
	resolver := NewResolver(reg, ResolverConfig[domain.Location]{
		Tiers: []Tier{
			{Index: LocationIndexName, MatchType: domain.MatchExact, Confidence: domain.ConfidenceExact},
			{Index: LocationIndexHistorical, MatchType: domain.MatchHistorical, Confidence: domain.ConfidenceExact},
			{Index: LocationIndexAlternate, MatchType: domain.MatchVariant, Confidence: domain.ConfidenceVariant},
		},
		Similarity: func(query string, l domain.Location) float64 {
			return provider.NameRatio(matching.IndexKey(query), matching.IndexKey(l.ModernName)) / 100
		},
		DefaultThreshold: threshold,
	})
	return &LocationRegistry{reg: reg, resolver: resolver}
}

// Load replaces the registry contents from the store.
func (r *LocationRegistry) Load(ctx context.Context) error { return r.reg.Load(ctx) }

// Save writes the registry contents to the store.
func (r *LocationRegistry) Save(ctx context.Context) error { return r.reg.Save(ctx) }

// ReloadIfSaved reloads from the store unless there are unsaved changes,
// and reports whether it did.
func (r *LocationRegistry) ReloadIfSaved(ctx context.Context) (bool, error) { return r.reg.ReloadIfSaved(ctx) }

// Unsaved reports whether there are changes not yet written by Save.
func (r *LocationRegistry) Unsaved() bool { return r.reg.Unsaved() }

// Create adds a location.
func (r *LocationRegistry) Create(loc domain.Location) (domain.Location, error) {
	return r.reg.Create(loc)
}

// Read returns the location with id.
func (r *LocationRegistry) Read(id string) (domain.Location, bool) { return r.reg.Read(id) }

// Update replaces a location.
func (r *LocationRegistry) Update(loc domain.Location) (domain.Location, error) {
	return r.reg.Update(loc)
}

// Delete removes a location and reports whether it existed.
func (r *LocationRegistry) Delete(id string) bool { return r.reg.Delete(id) }

// Len returns the number of locations.
func (r *LocationRegistry) Len() int { return r.reg.Len() }

// List returns the locations matching every non-empty filter field.
func (r *LocationRegistry) List(f driving.LocationFilter) []domain.Location {
	var filters []func(domain.Location) bool
	if f.AdminType != "" {
		filters = append(filters, func(l domain.Location) bool { return l.AdminType == f.AdminType })
	}
	if f.Country != "" {
		filters = append(filters, inCountry(f.Country))
	}
	return r.reg.List(filters...)
}

func inCountry(country string) func(domain.Location) bool {
	return func(l domain.Location) bool {
		return l.Country() != "" && matching.FoldCase(l.Country(), country)
	}
}

// SearchExact returns the locations whose modern, historical or alternate
// name equals name, ignoring case and punctuation.
func (r *LocationRegistry) SearchExact(name string) []domain.MatchResult[domain.Location] {
	return r.resolver.Resolve(Query[domain.Location]{Text: name})
}

// Resolve runs tiered resolution: modern name (exact, 1.0), historical name
// (1.0), alternate spelling (variant, 0.9), then fuzzy when q.Fuzzy is set.
func (r *LocationRegistry) Resolve(q driving.LocationQuery) []domain.MatchResult[domain.Location] {
	query := Query[domain.Location]{
		Text:      q.Text,
		Fuzzy:     q.Fuzzy,
		Threshold: q.Threshold,
	}
	if q.Country != "" {
		query.Filter = inCountry(q.Country)
	}
	if q.ExcludeHistorical {
		query.Skip = []domain.MatchType{domain.MatchHistorical}
	}
	return r.resolver.Resolve(query)
}

// SearchByCode returns the location carrying an ISO 3166-1, ISO 3166-2 or
// FIPS code. Codes compare case-insensitively. When several records share a
// code, the one latest in collection order wins.
func (r *LocationRegistry) SearchByCode(code string) (domain.Location, bool) {
	hits := r.reg.Lookup(LocationIndexCode, code)
	if len(hits) == 0 {
		return domain.Location{}, false
	}
	return hits[len(hits)-1], true
}

// SearchByHierarchy returns locations whose hierarchy matches every non-empty
// field of q, case-insensitively.
func (r *LocationRegistry) SearchByHierarchy(q domain.LocationHierarchyQuery) []domain.Location {
	return r.reg.List(func(l domain.Location) bool {
		return matchesHierarchy(l, q)
	})
}

// ResolveHierarchy is SearchByHierarchy reported as hierarchical matches.
func (r *LocationRegistry) ResolveHierarchy(q domain.LocationHierarchyQuery) []domain.MatchResult[domain.Location] {
	locs := r.SearchByHierarchy(q)
	out := make([]domain.MatchResult[domain.Location], 0, len(locs))
	for _, l := range locs {
		out = append(out, domain.MatchResult[domain.Location]{
			Record:     l,
			Confidence: domain.ConfidenceExact,
			MatchType:  domain.MatchHierarchical,
		})
	}
	return out
}

func matchesHierarchy(l domain.Location, q domain.LocationHierarchyQuery) bool {
	h := l.Hierarchy
	if h == nil {
		return false
	}
	pairs := [][2]string{
		{q.Locality, h.Locality},
		{q.County, h.County},
		{q.State, h.State},
		{q.Country, h.Country},
	}
	for _, p := range pairs {
		if p[0] == "" {
			continue
		}
		if p[1] == "" || !matching.FoldCase(p[0], p[1]) {
			return false
		}
	}
	return true
}

// SearchByCoordinates returns the locations within radiusKm of the point,
// nearest first. Locations without coordinates are skipped.
func (r *LocationRegistry) SearchByCoordinates(lat, lon, radiusKm float64) []domain.LocationDistance {
	var out []domain.LocationDistance
	r.reg.View(func(s Snapshot[domain.Location]) {
		s.Each(func(l domain.Location) bool {
			if !l.HasCoordinates() {
				return true
			}
			d := domain.Haversine(lat, lon, l.Geocode.Latitude, l.Geocode.Longitude)
			if d <= radiusKm {
				out = append(out, domain.LocationDistance{Location: l.Clone(), DistanceKm: d})
			}
			return true
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// Distance returns the great-circle distance in km between two stored
// locations, and false when either is missing or lacks coordinates.
func (r *LocationRegistry) Distance(id1, id2 string) (float64, bool) {
	a, ok := r.reg.Read(id1)
	if !ok {
		return 0, false
	}
	b, ok := r.reg.Read(id2)
	if !ok {
		return 0, false
	}
	return a.DistanceTo(b)
}

// FindContainedBy returns the stored parents of id. Unknown ids are skipped.
func (r *LocationRegistry) FindContainedBy(id string) []domain.Location {
	return r.related(id, func(l domain.Location) []string { return l.ContainedBy })
}

// FindContains returns the stored children of id. Unknown ids are skipped.
func (r *LocationRegistry) FindContains(id string) []domain.Location {
	return r.related(id, func(l domain.Location) []string { return l.Contains })
}

func (r *LocationRegistry) related(id string, ids func(domain.Location) []string) []domain.Location {
	var out []domain.Location
	r.reg.View(func(s Snapshot[domain.Location]) {
		l, ok := s.Get(id)
		if !ok {
			return
		}
		for _, rid := range ids(l) {
			if rel, ok := s.Get(rid); ok {
				out = append(out, rel.Clone())
			}
		}
	})
	return out
}

// FindByCountry returns every location whose hierarchy names country.
func (r *LocationRegistry) FindByCountry(country string) []domain.Location {
	return r.reg.Lookup(LocationIndexCountry, country)
}

// Statistics summarises the registry.
func (r *LocationRegistry) Statistics() domain.LocationStats {
	stats := domain.LocationStats{
		ByAdminType:  make(map[string]int),
		ByCountry:    make(map[string]int),
		ByAdminLevel: make(map[string]int),
	}
	r.reg.View(func(s Snapshot[domain.Location]) {
		stats.TotalLocations = s.Len()
		s.Each(func(l domain.Location) bool {
			if l.AdminType != "" {
				stats.ByAdminType[l.AdminType]++
			}
			if c := l.Country(); c != "" {
				stats.ByCountry[c]++
			}
			if l.AdminLevel != nil {
				stats.ByAdminLevel[strconv.Itoa(*l.AdminLevel)]++
			}
			if l.HasCoordinates() {
				stats.WithCoordinates++
			}
			if len(l.HistoricalNames) > 0 {
				stats.WithHistoricalNames++
			}
			return true
		})
	})
	return stats
}

// Countries returns the distinct country keys held by the country index.
func (r *LocationRegistry) Countries() []string {
	var out []string
	r.reg.View(func(s Snapshot[domain.Location]) {
		out = slices.Clone(s.Keys(LocationIndexCountry))
	})
	return out
}
