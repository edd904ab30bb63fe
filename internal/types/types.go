package types

import (
	"context"
	"net/http"
	"time"
)

// HorseDetailFetcher defines the single-horse fetch-and-classify operation
type HorseDetailFetcher interface {
	FetchHorseDetail(ctx context.Context, externalID string) (*HorseDetailData, error)
}

// HorseStore defines the persistence collaborator that consumes fetch results.
// ReplaceHorseDetail performs a full replace of the horse's races and
// registrations; it never merges with previously stored rows.
type HorseStore interface {
	ReplaceHorseDetail(ctx context.Context, externalID string, detail *HorseDetailData) error
	GetHorseDetail(ctx context.Context, externalID string) (*HorseDetailData, error)
	ListHorses(ctx context.Context) ([]HorseSummary, error)
	Close() error
}

// HorseSearcher defines the interface for fuzzy search over stored horses
type HorseSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]HorseMatch, error)
}

// RateLimiter defines the interface for rate limiting functionality
type RateLimiter interface {
	Allow(ip string) bool
	Reset(ip string)
}

// SecurityMiddleware defines the interface for security middleware
type SecurityMiddleware interface {
	SecurityHeaders(next http.Handler) http.Handler
	RateLimit(next http.Handler) http.Handler
	InputValidation(next http.Handler) http.Handler
}

// Core data models

// Surface is the track surface category of a race.
type Surface string

const (
	SurfaceUnknown   Surface = ""
	SurfaceTurf      Surface = "Çim"
	SurfaceDirt      Surface = "Kum"
	SurfaceSynthetic Surface = "Sentetik"
)

// RegistrationKind distinguishes entries without a jockey from declared ones.
type RegistrationKind string

const (
	KindRegistered RegistrationKind = "registered"
	KindDeclared   RegistrationKind = "declared"
)

// Person is a jockey or trainer as linked from the race table
type Person struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// RaceRecord represents a completed race of the horse
type RaceRecord struct {
	Date           time.Time `json:"date"`
	City           string    `json:"city"`
	DistanceMeters *int      `json:"distance_meters,omitempty"`
	Surface        Surface   `json:"surface,omitempty"`
	SurfaceRaw     string    `json:"surface_raw,omitempty"`
	Position       string    `json:"position,omitempty"`
	ElapsedTime    string    `json:"elapsed_time,omitempty"`
	Weight         string    `json:"weight,omitempty"`
	Jockey         Person    `json:"jockey"`
	RaceNumber     *int      `json:"race_number,omitempty"`
	RaceName       string    `json:"race_name,omitempty"`
	RaceType       string    `json:"race_type,omitempty"`
	Trainer        Person    `json:"trainer"`
	HandicapPoints *int      `json:"handicap_points,omitempty"`
	Prize          *float64  `json:"prize,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
}

// RegistrationRecord represents a future race the horse is entered in
type RegistrationRecord struct {
	Date           time.Time        `json:"date"`
	City           string           `json:"city"`
	DistanceMeters *int             `json:"distance_meters,omitempty"`
	Surface        Surface          `json:"surface,omitempty"`
	SurfaceRaw     string           `json:"surface_raw,omitempty"`
	RaceType       string           `json:"race_type,omitempty"`
	Jockey         *Person          `json:"jockey,omitempty"`
	Kind           RegistrationKind `json:"kind"`
}

// Ancestor is one named horse in the pedigree
type Ancestor struct {
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
}

// IsZero reports whether the ancestor is unknown
func (a Ancestor) IsZero() bool {
	return a.Name == ""
}

// Pedigree holds the parents and, when recoverable, the grandparents
type Pedigree struct {
	Sire     Ancestor `json:"sire"`
	Dam      Ancestor `json:"dam"`
	SireSire Ancestor `json:"sire_sire"`
	SireDam  Ancestor `json:"sire_dam"`
	DamSire  Ancestor `json:"dam_sire"`
	DamDam   Ancestor `json:"dam_dam"`
}

// HasParents reports whether both sire and dam are known
func (p Pedigree) HasParents() bool {
	return !p.Sire.IsZero() && !p.Dam.IsZero()
}

// SurfaceStatistics holds career totals for one surface
type SurfaceStatistics struct {
	Races    int      `json:"races"`
	Wins     int      `json:"wins"`
	Seconds  int      `json:"seconds"`
	Thirds   int      `json:"thirds"`
	Fourths  int      `json:"fourths"`
	Fifths   int      `json:"fifths"`
	Earnings *float64 `json:"earnings,omitempty"`
}

// TotalStatistics is the all-surfaces block
type TotalStatistics = SurfaceStatistics

// Statistics groups the per-surface blocks; a nil block was not on the page
type Statistics struct {
	All       *TotalStatistics   `json:"all,omitempty"`
	Turf      *SurfaceStatistics `json:"turf,omitempty"`
	Dirt      *SurfaceStatistics `json:"dirt,omitempty"`
	Synthetic *SurfaceStatistics `json:"synthetic,omitempty"`
}

// HorseDetailData is the aggregate produced by one fetch
type HorseDetailData struct {
	ExternalID     string               `json:"external_id"`
	Name           string               `json:"name,omitempty"`
	Owner          string               `json:"owner,omitempty"`
	Breeder        string               `json:"breeder,omitempty"`
	HandicapPoints *int                 `json:"handicap_points,omitempty"`
	PrizeMoney     *float64             `json:"prize_money,omitempty"`
	OwnerPremium   *float64             `json:"owner_premium,omitempty"`
	BreederPremium *float64             `json:"breeder_premium,omitempty"`
	TotalEarnings  *float64             `json:"total_earnings,omitempty"`
	Statistics     Statistics           `json:"statistics"`
	Pedigree       Pedigree             `json:"pedigree"`
	Races          []RaceRecord         `json:"races"`
	Registrations  []RegistrationRecord `json:"registrations"`
	FetchedAt      time.Time            `json:"fetched_at"`
}

// HorseSummary is a lightweight listing entry from the store
type HorseSummary struct {
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	RaceCount  int       `json:"race_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HorseMatch is a fuzzy search hit
type HorseMatch struct {
	Horse      HorseSummary `json:"horse"`
	Confidence float64      `json:"confidence"`
}

// API request/response models

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RefreshResponse reports what a refresh wrote to the store
type RefreshResponse struct {
	ExternalID          string `json:"external_id"`
	RacesStored         int    `json:"races_stored"`
	RegistrationsStored int    `json:"registrations_stored"`
	DurationMS          int64  `json:"duration_ms"`
}
