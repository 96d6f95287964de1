package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"checkpoint/internal/registration/models"
	"checkpoint/pkg/platform/sentinel"
	pstrings "checkpoint/pkg/platform/strings"
)

// InMemory is a Backend for development and tests.
type InMemory struct {
	mu            sync.RWMutex
	registrations map[string]*models.Registration
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{registrations: make(map[string]*models.Registration)}
}

func (s *InMemory) Insert(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registrations[r.RegistrationID]; exists {
		return sentinel.ErrConflict
	}
	s.registrations[r.RegistrationID] = r.Clone()
	return nil
}

func (s *InMemory) Get(_ context.Context, id string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(s.registrations))
	for _, r := range s.registrations {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.registrations, id)
	return nil
}

func (s *InMemory) Search(_ context.Context, q models.Query) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0)
	for _, r := range s.registrations {
		if q.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Registration) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

func (s *InMemory) Stats(_ context.Context, todayStart time.Time) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.Stats
	plates := make([]string, 0, len(s.registrations))
	people := make([]string, 0, len(s.registrations))
	for _, r := range s.registrations {
		stats.Total++
		today := !r.Timestamp.Before(todayStart)
		switch r.Type {
		case models.DirectionEntry:
			stats.EntryCount++
			if today {
				stats.TodayEntryCount++
			}
		case models.DirectionExit:
			stats.ExitCount++
			if today {
				stats.TodayExitCount++
			}
		}
		plates = append(plates, r.PlateData.PlateNumber)
		people = append(people, r.IdentityData.IDNumber)
		if stats.LatestTimestamp == nil || r.Timestamp.After(*stats.LatestTimestamp) {
			ts := r.Timestamp
			stats.LatestTimestamp = &ts
		}
	}
	stats.UniqueVehicleCount = int64(len(pstrings.DistinctNonEmpty(plates)))
	stats.UniquePersonCount = int64(len(pstrings.DistinctNonEmpty(people)))
	return stats, nil
}
