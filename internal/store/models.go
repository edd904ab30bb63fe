package store

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/toozej/go-thoroughbred/internal/types"
)

// Horse is the row of one stored horse. Statistics and pedigree are small
// fixed shapes and live in jsonb columns.
type Horse struct {
	bun.BaseModel `bun:"table:horses,alias:h"`

	ExternalID     string           `bun:"external_id,pk"`
	Name           string           `bun:"name,notnull"`
	Owner          string           `bun:"owner"`
	Breeder        string           `bun:"breeder"`
	HandicapPoints *int             `bun:"handicap_points"`
	PrizeMoney     *float64         `bun:"prize_money"`
	OwnerPremium   *float64         `bun:"owner_premium"`
	BreederPremium *float64         `bun:"breeder_premium"`
	TotalEarnings  *float64         `bun:"total_earnings"`
	Statistics     types.Statistics `bun:"statistics,type:jsonb"`
	Pedigree       types.Pedigree   `bun:"pedigree,type:jsonb"`
	FetchedAt      time.Time        `bun:"fetched_at,nullzero"`
	UpdatedAt      time.Time        `bun:"updated_at,notnull,default:current_timestamp"`
}

// Race is one completed race of a horse.
type Race struct {
	bun.BaseModel `bun:"table:horse_races,alias:r"`

	ID             int64     `bun:"id,pk,autoincrement"`
	ExternalID     string    `bun:"external_id,notnull"`
	Seq            int       `bun:"seq,notnull"`
	Date           time.Time `bun:"date,notnull,type:date"`
	City           string    `bun:"city"`
	DistanceMeters *int      `bun:"distance_meters"`
	Surface        string    `bun:"surface"`
	SurfaceRaw     string    `bun:"surface_raw"`
	Position       string    `bun:"position"`
	ElapsedTime    string    `bun:"elapsed_time"`
	Weight         string    `bun:"weight"`
	JockeyName     string    `bun:"jockey_name"`
	JockeyID       string    `bun:"jockey_id"`
	RaceNumber     *int      `bun:"race_number"`
	RaceName       string    `bun:"race_name"`
	RaceType       string    `bun:"race_type"`
	TrainerName    string    `bun:"trainer_name"`
	TrainerID      string    `bun:"trainer_id"`
	HandicapPoints *int      `bun:"handicap_points"`
	Prize          *float64  `bun:"prize"`
	VideoURL       string    `bun:"video_url"`
	PhotoURL       string    `bun:"photo_url"`
}

// Registration is one future entry of a horse.
type Registration struct {
	bun.BaseModel `bun:"table:horse_registrations,alias:g"`

	ID             int64     `bun:"id,pk,autoincrement"`
	ExternalID     string    `bun:"external_id,notnull"`
	Seq            int       `bun:"seq,notnull"`
	Date           time.Time `bun:"date,notnull,type:date"`
	City           string    `bun:"city"`
	DistanceMeters *int      `bun:"distance_meters"`
	Surface        string    `bun:"surface"`
	SurfaceRaw     string    `bun:"surface_raw"`
	RaceType       string    `bun:"race_type"`
	JockeyName     string    `bun:"jockey_name"`
	JockeyID       string    `bun:"jockey_id"`
	Kind           string    `bun:"kind,notnull"`
}

func toHorseModel(externalID string, d *types.HorseDetailData, now time.Time) *Horse {
	return &Horse{
		ExternalID:     externalID,
		Name:           d.Name,
		Owner:          d.Owner,
		Breeder:        d.Breeder,
		HandicapPoints: d.HandicapPoints,
		PrizeMoney:     d.PrizeMoney,
		OwnerPremium:   d.OwnerPremium,
		BreederPremium: d.BreederPremium,
		TotalEarnings:  d.TotalEarnings,
		Statistics:     d.Statistics,
		Pedigree:       d.Pedigree,
		FetchedAt:      d.FetchedAt,
		UpdatedAt:      now,
	}
}

func toRaceModels(externalID string, races []types.RaceRecord) []Race {
	out := make([]Race, 0, len(races))
	for i, r := range races {
		out = append(out, Race{
			ExternalID:     externalID,
			Seq:            i,
			Date:           storageDate(r.Date),
			City:           r.City,
			DistanceMeters: r.DistanceMeters,
			Surface:        string(r.Surface),
			SurfaceRaw:     r.SurfaceRaw,
			Position:       r.Position,
			ElapsedTime:    r.ElapsedTime,
			Weight:         r.Weight,
			JockeyName:     r.Jockey.Name,
			JockeyID:       r.Jockey.ID,
			RaceNumber:     r.RaceNumber,
			RaceName:       r.RaceName,
			RaceType:       r.RaceType,
			TrainerName:    r.Trainer.Name,
			TrainerID:      r.Trainer.ID,
			HandicapPoints: r.HandicapPoints,
			Prize:          r.Prize,
			VideoURL:       r.VideoURL,
			PhotoURL:       r.PhotoURL,
		})
	}
	return out
}

func toRegistrationModels(externalID string, regs []types.RegistrationRecord) []Registration {
	out := make([]Registration, 0, len(regs))
	for i, r := range regs {
		m := Registration{
			ExternalID:     externalID,
			Seq:            i,
			Date:           storageDate(r.Date),
			City:           r.City,
			DistanceMeters: r.DistanceMeters,
			Surface:        string(r.Surface),
			SurfaceRaw:     r.SurfaceRaw,
			RaceType:       r.RaceType,
			Kind:           string(r.Kind),
		}
		if r.Jockey != nil {
			m.JockeyName = r.Jockey.Name
			m.JockeyID = r.Jockey.ID
		}
		out = append(out, m)
	}
	return out
}

// storageDate keeps the calendar day of t as UTC midnight, which is how
// timestamps are rendered into date columns.
func storageDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// calendarDate re-anchors a date column, which is read back as UTC midnight,
// to midnight in loc.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func fromModels(h *Horse, races []Race, regs []Registration, loc *time.Location) *types.HorseDetailData {
	detail := &types.HorseDetailData{
		ExternalID:     h.ExternalID,
		Name:           h.Name,
		Owner:          h.Owner,
		Breeder:        h.Breeder,
		HandicapPoints: h.HandicapPoints,
		PrizeMoney:     h.PrizeMoney,
		OwnerPremium:   h.OwnerPremium,
		BreederPremium: h.BreederPremium,
		TotalEarnings:  h.TotalEarnings,
		Statistics:     h.Statistics,
		Pedigree:       h.Pedigree,
		FetchedAt:      h.FetchedAt,
		Races:          make([]types.RaceRecord, 0, len(races)),
		Registrations:  make([]types.RegistrationRecord, 0, len(regs)),
	}

	for _, r := range races {
		detail.Races = append(detail.Races, types.RaceRecord{
			Date:           calendarDate(r.Date, loc),
			City:           r.City,
			DistanceMeters: r.DistanceMeters,
			Surface:        types.Surface(r.Surface),
			SurfaceRaw:     r.SurfaceRaw,
			Position:       r.Position,
			ElapsedTime:    r.ElapsedTime,
			Weight:         r.Weight,
			Jockey:         types.Person{Name: r.JockeyName, ID: r.JockeyID},
			RaceNumber:     r.RaceNumber,
			RaceName:       r.RaceName,
			RaceType:       r.RaceType,
			Trainer:        types.Person{Name: r.TrainerName, ID: r.TrainerID},
			HandicapPoints: r.HandicapPoints,
			Prize:          r.Prize,
			VideoURL:       r.VideoURL,
			PhotoURL:       r.PhotoURL,
		})
	}

	for _, r := range regs {
		reg := types.RegistrationRecord{
			Date:           calendarDate(r.Date, loc),
			City:           r.City,
			DistanceMeters: r.DistanceMeters,
			Surface:        types.Surface(r.Surface),
			SurfaceRaw:     r.SurfaceRaw,
			RaceType:       r.RaceType,
			Kind:           types.RegistrationKind(r.Kind),
		}
		if r.JockeyName != "" {
			reg.Jockey = &types.Person{Name: r.JockeyName, ID: r.JockeyID}
		}
		detail.Registrations = append(detail.Registrations, reg)
	}

	return detail
}
