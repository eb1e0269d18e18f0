package inmemdb

import (
	"context"
	"sort"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) UpsertReport(_ context.Context, r report.Report) (report.Report, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.mokjangs[r.MokjangID]; !ok {
		return report.Report{}, false, core.NewValidationError(nil, core.FieldError{Field: "mokjang_id", Error: "unknown mokjang"})
	}
	for _, existing := range repo.db.reports {
		if existing.MokjangID == r.MokjangID && existing.Date.Equal(r.Date.Time) {
			existing.Content = r.Content
			existing.PrayerRequests = r.PrayerRequests
			existing.Suggestions = r.Suggestions
			existing.AuthorID = copyStr(r.AuthorID)
			existing.UpdatedAt = r.UpdatedAt
			return *existing, false, nil
		}
	}
	r.ID = newID()
	r.AuthorID = copyStr(r.AuthorID)
	stored := r
	repo.db.reports[r.ID] = &stored
	return r, true, nil
}

func (repo *reportRepository) GetReport(_ context.Context, id string) (report.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.reports[id]; ok {
		return *r, nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) QueryReports(_ context.Context, filter report.QueryFilter) ([]report.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reports := make([]report.Report, 0)
	for _, r := range repo.db.reports {
		if filter.MokjangID != "" && r.MokjangID != filter.MokjangID {
			continue
		}
		if filter.MokjangIDs != nil && !core.ContainsString(filter.MokjangIDs, r.MokjangID) {
			continue
		}
		if !inRange(r.Date, filter.From, filter.To) {
			continue
		}
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].Date.Equal(reports[j].Date.Time) {
			return reports[i].Date.After(reports[j].Date.Time)
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (repo *reportRepository) DeleteReport(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.reports[id]; !ok {
		return report.ErrNotFound
	}
	delete(repo.db.reports, id)
	return nil
}
