// Package servicetest provides in-memory store fakes for tracker and
// reconciler tests. The fakes mimic the Postgres repositories' semantics:
// uniqueness arbitration in GetOrCreate/Create, eligibility re-checks in
// Close, id allocation on insert.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"voltlog/internal/models"
)

// FakeSampleStore is an in-memory service.SampleStore.
type FakeSampleStore struct {
	mu      sync.Mutex
	nextID  int64
	samples []models.TelemetrySample
}

// NewFakeSampleStore returns an empty store.
func NewFakeSampleStore() *FakeSampleStore {
	return &FakeSampleStore{nextID: 1}
}

func (f *FakeSampleStore) Insert(_ context.Context, s *models.TelemetrySample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.nextID
	f.nextID++
	f.samples = append(f.samples, *s)
	return nil
}

func (f *FakeSampleStore) LastBySession(_ context.Context, sessionID string) (*models.TelemetrySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.TelemetrySample
	for i := range f.samples {
		s := &f.samples[i]
		if s.SessionID != sessionID {
			continue
		}
		if last == nil || s.RecordedAt.After(last.RecordedAt) {
			last = s
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (f *FakeSampleStore) LatestBefore(_ context.Context, before time.Time) (*models.TelemetrySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.TelemetrySample
	for i := range f.samples {
		s := &f.samples[i]
		if !s.RecordedAt.Before(before) {
			continue
		}
		if last == nil || s.RecordedAt.After(last.RecordedAt) {
			last = s
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (f *FakeSampleStore) Since(_ context.Context, cutoff time.Time) ([]models.TelemetrySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TelemetrySample
	for _, s := range f.samples {
		if !s.RecordedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// FakeTripStore is an in-memory service.TripStore.
type FakeTripStore struct {
	mu          sync.Mutex
	nextID      int64
	trips       map[string]*models.Trip
	transitions map[int64]*models.SocTransition
}

// NewFakeTripStore returns an empty store.
func NewFakeTripStore() *FakeTripStore {
	return &FakeTripStore{
		nextID:      1,
		trips:       make(map[string]*models.Trip),
		transitions: make(map[int64]*models.SocTransition),
	}
}

func (f *FakeTripStore) GetOrCreate(_ context.Context, seed *models.Trip) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.trips[seed.SessionID]; ok {
		copied := *existing
		return &copied, nil
	}
	trip := *seed
	trip.ID = f.nextID
	f.nextID++
	f.trips[trip.SessionID] = &trip
	copied := trip
	return &copied, nil
}

func (f *FakeTripStore) UpdateTracking(_ context.Context, t *models.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.trips[t.SessionID]
	if !ok || stored.Closed {
		return nil
	}
	stored.StartOdometer = t.StartOdometer
	stored.StartSOC = t.StartSOC
	stored.GasCandidateCount = t.GasCandidateCount
	stored.GasCandidateSOC = t.GasCandidateSOC
	stored.GasCandidateOdometer = t.GasCandidateOdometer
	stored.GasCandidateTime = t.GasCandidateTime
	stored.GasCandidateTemp = t.GasCandidateTemp
	stored.LastSampleAt = t.LastSampleAt
	return nil
}

func (f *FakeTripStore) ConfirmGasMode(_ context.Context, t *models.Trip, tr *models.SocTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.trips[t.SessionID]
	if ok && !stored.Closed {
		stored.GasModeEntered = true
		stored.SOCAtGasTransition = t.SOCAtGasTransition
		stored.TransitionOdometer = t.TransitionOdometer
		stored.StartOdometer = t.StartOdometer
		stored.StartSOC = t.StartSOC
		stored.GasCandidateCount = 0
		stored.GasCandidateSOC = nil
		stored.GasCandidateOdometer = nil
		stored.GasCandidateTime = nil
		stored.GasCandidateTemp = nil
		stored.LastSampleAt = t.LastSampleAt
	}
	if _, exists := f.transitions[tr.TripID]; !exists {
		copied := *tr
		f.transitions[tr.TripID] = &copied
	}
	return nil
}

func (f *FakeTripStore) OpenBefore(_ context.Context, cutoff time.Time) ([]models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trip
	for _, t := range f.trips {
		if !t.Closed && !t.Deleted && t.LastSampleAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *FakeTripStore) Close(_ context.Context, t *models.Trip) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.trips[t.SessionID]
	if !ok || stored.Closed {
		return false, nil
	}
	stored.EndTime = t.EndTime
	stored.EndOdometer = t.EndOdometer
	stored.DistanceMiles = t.DistanceMiles
	stored.ElectricMiles = t.ElectricMiles
	stored.GasMiles = t.GasMiles
	stored.Closed = true
	return true, nil
}

// Get returns a snapshot of the trip for a session.
func (f *FakeTripStore) Get(sessionID string) models.Trip {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.trips[sessionID]
}

// Transition returns the recorded transition for a trip, or nil.
func (f *FakeTripStore) Transition(tripID int64) *models.SocTransition {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.transitions[tripID]
	if !ok {
		return nil
	}
	copied := *tr
	return &copied
}

// TransitionCount returns the number of recorded transitions.
func (f *FakeTripStore) TransitionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transitions)
}

// FakeChargingStore is an in-memory service.ChargingStore.
type FakeChargingStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions []*models.ChargingSession
}

// NewFakeChargingStore returns an empty store.
func NewFakeChargingStore() *FakeChargingStore {
	return &FakeChargingStore{nextID: 1}
}

func (f *FakeChargingStore) Open(_ context.Context) (*models.ChargingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if !s.Completed {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *FakeChargingStore) Create(_ context.Context, seed *models.ChargingSession) (*models.ChargingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if !s.Completed {
			copied := *s
			return &copied, nil
		}
	}
	session := *seed
	session.ID = f.nextID
	f.nextID++
	f.sessions = append(f.sessions, &session)
	copied := session
	return &copied, nil
}

func (f *FakeChargingStore) Update(_ context.Context, s *models.ChargingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.sessions {
		if stored.ID == s.ID && !stored.Completed {
			copied := *s
			copied.Completed = false
			*stored = copied
		}
	}
	return nil
}

func (f *FakeChargingStore) Close(_ context.Context, s *models.ChargingSession) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.sessions {
		if stored.ID == s.ID {
			if stored.Completed {
				return false, nil
			}
			stored.EndTime = s.EndTime
			stored.EndSOC = s.EndSOC
			stored.EnergyAddedKWh = s.EnergyAddedKWh
			stored.AvgPowerKW = s.AvgPowerKW
			stored.Cost = s.Cost
			stored.Completed = true
			return true, nil
		}
	}
	return false, nil
}

// ByID returns a snapshot of a session.
func (f *FakeChargingStore) ByID(id int64) models.ChargingSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			return *s
		}
	}
	return models.ChargingSession{}
}

// SessionCount returns the number of sessions ever created.
func (f *FakeChargingStore) SessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// FakeFuelStore is an in-memory service.FuelStore.
type FakeFuelStore struct {
	mu     sync.Mutex
	nextID int64
	events []models.FuelEvent
}

// NewFakeFuelStore returns an empty store.
func NewFakeFuelStore() *FakeFuelStore {
	return &FakeFuelStore{nextID: 1}
}

func (f *FakeFuelStore) ExistsAt(_ context.Context, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.OccurredAt.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeFuelStore) Insert(_ context.Context, e *models.FuelEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.events {
		if existing.OccurredAt.Equal(e.OccurredAt) {
			return nil
		}
	}
	e.ID = f.nextID
	f.nextID++
	f.events = append(f.events, *e)
	return nil
}

// Events returns a snapshot of recorded events.
func (f *FakeFuelStore) Events() []models.FuelEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.FuelEvent, len(f.events))
	copy(out, f.events)
	return out
}
