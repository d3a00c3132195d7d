package domain

import (
	"slices"
	"strings"
)

// Bounds is a geographic bounding box.
type Bounds struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// Geocode holds coordinates and their accuracy.
type Geocode struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`

	// Accuracy is one of unknown, approximate or precise.
	Accuracy string  `json:"accuracy,omitempty"`
	Bounds   *Bounds `json:"bounds,omitempty"`
}

// LocationHierarchy is the administrative chain locality -> county -> state -> country.
type LocationHierarchy struct {
	Locality    string `json:"locality,omitempty"`
	County      string `json:"county,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
}

// HistoricalName is a name a location carried during a period.
type HistoricalName struct {
	Name         string `json:"name" validate:"required"`
	DateRange    string `json:"date_range"`
	Civilization string `json:"civilization,omitempty"`
	Note         string `json:"note,omitempty"`
}

// LocationCodes are standard identifiers for a location.
type LocationCodes struct {
	ISO31661 string `json:"iso_3166_1,omitempty"`
	ISO31662 string `json:"iso_3166_2,omitempty"`
	FIPS     string `json:"fips,omitempty"`
	OSMID    string `json:"osm_id,omitempty"`
}

// All returns the non-empty lookup codes. OSM ids are not looked up by code.
func (c LocationCodes) All() []string {
	var out []string
	for _, v := range []string{c.ISO31661, c.ISO31662, c.FIPS} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LocationSource records where geocoded data came from.
type LocationSource struct {
	Geocoder   string `json:"geocoder" validate:"required"`
	Query      string `json:"query"`
	ProviderID string `json:"provider_id,omitempty"`
	Licence    string `json:"licence,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Location is one entry of the location registry.
type Location struct {
	LocationID         string             `json:"location_id" validate:"required"`
	ModernName         string             `json:"modern_name" validate:"required"`
	AdminLevel         *int               `json:"admin_level"`
	AdminType          string             `json:"admin_type,omitempty"`
	HistoricalNames    []HistoricalName   `json:"historical_names,omitempty" validate:"omitempty,dive"`
	Geocode            *Geocode           `json:"geocode,omitempty"`
	Hierarchy          *LocationHierarchy `json:"hierarchy,omitempty"`
	ContainedBy        []string           `json:"contained_by"`
	Contains           []string           `json:"contains"`
	AlternateSpellings []string           `json:"alternate_spellings"`
	Codes              *LocationCodes     `json:"codes,omitempty"`
	Source             *LocationSource    `json:"source,omitempty"`
	Notes              string             `json:"notes"`
}

// RecordID implements Record.
func (l Location) RecordID() string { return l.LocationID }

// Clone implements Record.
func (l Location) Clone() Location {
	c := l
	if l.AdminLevel != nil {
		lvl := *l.AdminLevel
		c.AdminLevel = &lvl
	}
	c.HistoricalNames = slices.Clone(l.HistoricalNames)
	if l.Geocode != nil {
		g := *l.Geocode
		if l.Geocode.Bounds != nil {
			b := *l.Geocode.Bounds
			g.Bounds = &b
		}
		c.Geocode = &g
	}
	if l.Hierarchy != nil {
		h := *l.Hierarchy
		c.Hierarchy = &h
	}
	c.ContainedBy = slices.Clone(l.ContainedBy)
	c.Contains = slices.Clone(l.Contains)
	c.AlternateSpellings = slices.Clone(l.AlternateSpellings)
	if l.Codes != nil {
		cd := *l.Codes
		c.Codes = &cd
	}
	if l.Source != nil {
		s := *l.Source
		c.Source = &s
	}
	return c
}

// Country returns the hierarchy country, or "" when unknown.
func (l Location) Country() string {
	if l.Hierarchy == nil {
		return ""
	}
	return l.Hierarchy.Country
}

// HasCoordinates reports whether the location carries a geocode.
func (l Location) HasCoordinates() bool {
	return l.Geocode != nil
}

// DisplayName joins the hierarchy parts, falling back to the modern name.
func (l Location) DisplayName(includeCountry bool) string {
	if l.Hierarchy == nil {
		return l.ModernName
	}
	var parts []string
	for _, p := range []string{l.Hierarchy.Locality, l.Hierarchy.County, l.Hierarchy.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if includeCountry && l.Hierarchy.Country != "" {
		parts = append(parts, l.Hierarchy.Country)
	}
	if len(parts) == 0 {
		return l.ModernName
	}
	return strings.Join(parts, ", ")
}

// DistanceTo returns the haversine distance in km to other, and false when
// either location lacks coordinates.
func (l Location) DistanceTo(other Location) (float64, bool) {
	if !l.HasCoordinates() || !other.HasCoordinates() {
		return 0, false
	}
	return Haversine(l.Geocode.Latitude, l.Geocode.Longitude, other.Geocode.Latitude, other.Geocode.Longitude), true
}

// LocationHierarchyQuery selects locations by hierarchy parts.
// Empty fields are ignored; comparison is case-insensitive.
type LocationHierarchyQuery struct {
	Locality string
	County   string
	State    string
	Country  string
}

// LocationStats summarises a location registry.
type LocationStats struct {
	TotalLocations      int            `json:"total_locations"`
	ByAdminType         map[string]int `json:"by_admin_type"`
	ByCountry           map[string]int `json:"by_country"`
	ByAdminLevel        map[string]int `json:"by_admin_level"`
	WithCoordinates     int            `json:"with_coordinates"`
	WithHistoricalNames int            `json:"with_historical_names"`
}

// LocationDistance pairs a location with its distance from a query point.
type LocationDistance struct {
	Location   Location
	DistanceKm float64
}
