package driving

import (
	"context"

	"github.com/rickhohler/biographical/internal/core/domain"
)

// LocationFilter narrows a location listing. Empty fields are ignored.
type LocationFilter struct {
	AdminType string
	Country   string
}

// LocationQuery is a location resolution request.
type LocationQuery struct {
	Text string

	// Country restricts hits to locations in that country.
	Country string

	// ExcludeHistorical skips the historical-name tier.
	ExcludeHistorical bool

	// Fuzzy enables similarity matching after the indexed tiers.
	Fuzzy bool

	// Threshold is the minimum fuzzy similarity, 0.0-1.0. Zero selects
	// the configured default.
	Threshold float64
}

// LocationService manages place records and resolves place names.
type LocationService interface {
	// Load replaces the registry contents from storage.
	Load(ctx context.Context) error

	// Save writes the registry contents to storage.
	Save(ctx context.Context) error

	// Create adds a location.
	// Returns domain.ErrDuplicateKey if the id is taken and
	// domain.ErrMalformedRecord if validation fails.
	Create(loc domain.Location) (domain.Location, error)

	// Read returns the location with id.
	Read(id string) (domain.Location, bool)

	// Update replaces a location. Returns domain.ErrNotFound for unknown ids.
	Update(loc domain.Location) (domain.Location, error)

	// Delete removes a location and reports whether it existed.
	Delete(id string) bool

	// List returns locations matching the filter in insertion order.
	List(f LocationFilter) []domain.Location

	// SearchExact resolves name without fuzzy matching.
	SearchExact(name string) []domain.MatchResult[domain.Location]

	// Resolve runs tiered resolution, highest confidence first.
	Resolve(q LocationQuery) []domain.MatchResult[domain.Location]

	// SearchByCode finds a location by ISO 3166 or FIPS code.
	SearchByCode(code string) (domain.Location, bool)

	// SearchByHierarchy matches the administrative hierarchy.
	SearchByHierarchy(q domain.LocationHierarchyQuery) []domain.Location

	// SearchByCoordinates returns locations within radiusKm, nearest first.
	SearchByCoordinates(lat, lon, radiusKm float64) []domain.LocationDistance

	// Distance returns the km between two stored locations.
	Distance(id1, id2 string) (float64, bool)

	// FindContainedBy returns the stored parents of id.
	FindContainedBy(id string) []domain.Location

	// FindContains returns the stored children of id.
	FindContains(id string) []domain.Location

	// Statistics summarises the registry.
	Statistics() domain.LocationStats
}
