package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/toozej/go-thoroughbred/internal/types"
)

type memoryEntry struct {
	detail    types.HorseDetailData
	updatedAt time.Time
}

// MemoryStore keeps horse details in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

var _ types.HorseStore = (*MemoryStore)(nil)

func (m *MemoryStore) ReplaceHorseDetail(ctx context.Context, externalID string, detail *types.HorseDetailData) error {
	if err := validate(externalID, detail); err != nil {
		return err
	}

	stored := cloneDetail(detail)
	stored.ExternalID = externalID

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[externalID] = memoryEntry{detail: stored, updatedAt: m.now()}
	return nil
}

func (m *MemoryStore) GetHorseDetail(ctx context.Context, externalID string) (*types.HorseDetailData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.byID[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	detail := cloneDetail(&entry.detail)
	return &detail, nil
}

func (m *MemoryStore) ListHorses(ctx context.Context) ([]types.HorseSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.HorseSummary, 0, len(m.byID))
	for id, entry := range m.byID {
		out = append(out, types.HorseSummary{
			ExternalID: id,
			Name:       entry.detail.Name,
			RaceCount:  len(entry.detail.Races),
			UpdatedAt:  entry.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// cloneDetail deep-copies d so callers and the store never share records or
// pointer fields.
func cloneDetail(d *types.HorseDetailData) types.HorseDetailData {
	out := *d
	out.HandicapPoints = clonePtr(d.HandicapPoints)
	out.PrizeMoney = clonePtr(d.PrizeMoney)
	out.OwnerPremium = clonePtr(d.OwnerPremium)
	out.BreederPremium = clonePtr(d.BreederPremium)
	out.TotalEarnings = clonePtr(d.TotalEarnings)
	out.Statistics = types.Statistics{
		All:       cloneSurface(d.Statistics.All),
		Turf:      cloneSurface(d.Statistics.Turf),
		Dirt:      cloneSurface(d.Statistics.Dirt),
		Synthetic: cloneSurface(d.Statistics.Synthetic),
	}

	out.Races = make([]types.RaceRecord, len(d.Races))
	for i, race := range d.Races {
		race.DistanceMeters = clonePtr(race.DistanceMeters)
		race.RaceNumber = clonePtr(race.RaceNumber)
		race.HandicapPoints = clonePtr(race.HandicapPoints)
		race.Prize = clonePtr(race.Prize)
		out.Races[i] = race
	}

	out.Registrations = make([]types.RegistrationRecord, len(d.Registrations))
	for i, reg := range d.Registrations {
		reg.DistanceMeters = clonePtr(reg.DistanceMeters)
		reg.Jockey = clonePtr(reg.Jockey)
		out.Registrations[i] = reg
	}
	return out
}

func cloneSurface(s *types.SurfaceStatistics) *types.SurfaceStatistics {
	if s == nil {
		return nil
	}
	c := *s
	c.Earnings = clonePtr(s.Earnings)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
