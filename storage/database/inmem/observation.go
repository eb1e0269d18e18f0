package inmemdb

import (
	"context"
	"sort"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/observation"
)

type observationRepository struct {
	db *DB
}

var _ observation.Repository = (*observationRepository)(nil)

func NewObservationRepository(db *DB) *observationRepository {
	return &observationRepository{db: db}
}

func (repo *observationRepository) CreateObservation(_ context.Context, o observation.Observation) (observation.Observation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[o.StudentID]; !ok {
		return observation.Observation{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "unknown student"})
	}
	o.ID = newID()
	o.TeacherID = copyStr(o.TeacherID)
	stored := o
	repo.db.observations[o.ID] = &stored
	return o, nil
}

func (repo *observationRepository) GetObservation(_ context.Context, id string) (observation.Observation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if o, ok := repo.db.observations[id]; ok {
		return *o, nil
	}
	return observation.Observation{}, observation.ErrNotFound
}

func (repo *observationRepository) QueryObservations(_ context.Context, filter observation.QueryFilter) ([]observation.Observation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	observations := make([]observation.Observation, 0)
	for _, o := range repo.db.observations {
		if filter.StudentID != "" && o.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" && (o.TeacherID == nil || *o.TeacherID != filter.TeacherID) {
			continue
		}
		if !inRange(o.Date, filter.From, filter.To) {
			continue
		}
		observations = append(observations, *o)
	}
	sort.Slice(observations, func(i, j int) bool {
		if !observations[i].Date.Equal(observations[j].Date.Time) {
			return observations[i].Date.After(observations[j].Date.Time)
		}
		return observations[i].CreatedAt.After(observations[j].CreatedAt)
	})
	return observations, nil
}

func (repo *observationRepository) UpdateObservation(_ context.Context, o observation.Observation) (observation.Observation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.observations[o.ID]
	if !ok {
		return observation.Observation{}, observation.ErrNotFound
	}
	stored.Date = o.Date
	stored.Content = o.Content
	stored.UpdatedAt = o.UpdatedAt
	return *stored, nil
}

func (repo *observationRepository) DeleteObservation(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.observations[id]; !ok {
		return observation.ErrNotFound
	}
	delete(repo.db.observations, id)
	return nil
}
