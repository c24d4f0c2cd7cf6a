package service

import (
	"strings"
	"sync"

	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"gorm.io/gorm"
)

// In-memory repositories backing the service tests. They honor the same
// contracts as the gorm implementations, including the version-guarded write.

type fakeAttemptRepo struct {
	mu         sync.Mutex
	attempts   map[uint]*model.Attempt
	exams      map[uint]model.Exam
	candidates map[uint]model.Candidate
	nextID     uint
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{
		attempts:   map[uint]*model.Attempt{},
		exams:      map[uint]model.Exam{},
		candidates: map[uint]model.Candidate{},
	}
}

func (r *fakeAttemptRepo) Create(tx *gorm.DB, attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Mirrors the uniq_attempts_live partial unique index: at most one live
	// attempt per candidate and exam.
	if !attempt.IsTerminal() {
		for _, stored := range r.attempts {
			if stored.CandidateID == attempt.CandidateID && stored.ExamID == attempt.ExamID && !stored.IsTerminal() {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	r.nextID++
	attempt.ID = r.nextID
	cp := *attempt
	r.attempts[attempt.ID] = &cp
	return nil
}

func (r *fakeAttemptRepo) FindByID(id uint) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeAttemptRepo) FindByIDWithExam(id uint) (*model.Attempt, error) {
	attempt, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt.Exam = r.exams[attempt.ExamID]
	attempt.Candidate = r.candidates[attempt.CandidateID]
	return attempt, nil
}

func (r *fakeAttemptRepo) UpdateWithVersion(tx *gorm.DB, attempt *model.Attempt, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attempts[attempt.ID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	attempt.Version = expectedVersion + 1
	cp := *attempt
	r.attempts[attempt.ID] = &cp
	return true, nil
}

func (r *fakeAttemptRepo) FindActiveByCandidateAndExam(tx *gorm.DB, candidateID, examID uint) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.attempts {
		if stored.CandidateID == candidateID && stored.ExamID == examID && !stored.IsTerminal() {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) CountByCandidateAndExam(tx *gorm.DB, candidateID, examID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, stored := range r.attempts {
		if stored.CandidateID == candidateID && stored.ExamID == examID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAttemptRepo) ListActiveWithExam() ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for id := uint(1); id <= r.nextID; id++ {
		stored, ok := r.attempts[id]
		if !ok || stored.IsTerminal() {
			continue
		}
		cp := *stored
		cp.Exam = r.exams[cp.ExamID]
		cp.Candidate = r.candidates[cp.CandidateID]
		out = append(out, cp)
	}
	return out, nil
}

func (r *fakeAttemptRepo) ListControl(filter repository.AttemptControlFilter) ([]model.Attempt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.Attempt
	for id := uint(1); id <= r.nextID; id++ {
		stored, ok := r.attempts[id]
		if !ok {
			continue
		}
		if filter.ExamID != nil && stored.ExamID != *filter.ExamID {
			continue
		}
		if filter.Status != nil && stored.Status != *filter.Status {
			continue
		}
		candidate := r.candidates[stored.CandidateID]
		if filter.BatchID != nil && (candidate.BatchID == nil || *candidate.BatchID != *filter.BatchID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(candidate.FullName, filter.Search) {
			continue
		}
		cp := *stored
		cp.Exam = r.exams[cp.ExamID]
		cp.Candidate = candidate
		matched = append(matched, cp)
	}
	total := int64(len(matched))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type fakeGrantRepo struct {
	mu     sync.Mutex
	grants map[uint]*model.OverrideGrant
	nextID uint
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{grants: map[uint]*model.OverrideGrant{}}
}

func (r *fakeGrantRepo) Create(tx *gorm.DB, grant *model.OverrideGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.grants {
		if stored.IdempotencyKey == grant.IdempotencyKey {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	grant.ID = r.nextID
	cp := *grant
	r.grants[grant.ID] = &cp
	return nil
}

func (r *fakeGrantRepo) FindByIdempotencyKey(key string) (*model.OverrideGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.grants {
		if stored.IdempotencyKey == key {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeGrantRepo) FindUnconsumedAllowNew(tx *gorm.DB, candidateID, examID uint) (*model.OverrideGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := uint(1); id <= r.nextID; id++ {
		stored, ok := r.grants[id]
		if !ok {
			continue
		}
		if stored.CandidateID == candidateID && stored.ExamID == examID &&
			stored.Type == model.OverrideAllowNewAttempt && !stored.Consumed {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeGrantRepo) MarkConsumed(tx *gorm.DB, grantID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.grants[grantID]
	if !ok || stored.Consumed {
		return false, nil
	}
	stored.Consumed = true
	return true, nil
}

func (r *fakeGrantRepo) ListByAttempt(attemptID uint) ([]model.OverrideGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.OverrideGrant
	for id := uint(1); id <= r.nextID; id++ {
		stored, ok := r.grants[id]
		if !ok || stored.AttemptID == nil || *stored.AttemptID != attemptID {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *fakeGrantRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grants)
}

type fakeExamRepo struct {
	mu     sync.Mutex
	exams  map[uint]*model.Exam
	nextID uint
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{exams: map[uint]*model.Exam{}}
}

func (r *fakeExamRepo) Create(exam *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	exam.ID = r.nextID
	cp := *exam
	r.exams[exam.ID] = &cp
	return nil
}

func (r *fakeExamRepo) FindByID(id uint) (*model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeExamRepo) FindAll() ([]model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Exam
	for id := uint(1); id <= r.nextID; id++ {
		if stored, ok := r.exams[id]; ok {
			out = append(out, *stored)
		}
	}
	return out, nil
}

type fakeEventRepo struct {
	mu      sync.Mutex
	counts  map[uint]map[model.ProctorEventType]int
	failErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{counts: map[uint]map[model.ProctorEventType]int{}}
}

func (r *fakeEventRepo) record(attemptID uint, eventType model.ProctorEventType, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[attemptID] == nil {
		r.counts[attemptID] = map[model.ProctorEventType]int{}
	}
	r.counts[attemptID][eventType] += n
}

func (r *fakeEventRepo) Append(events []model.ProctorEvent) error {
	if r.failErr != nil {
		return r.failErr
	}
	for _, event := range events {
		r.record(event.AttemptID, event.EventType, 1)
	}
	return nil
}

func (r *fakeEventRepo) CountsByAttempt(attemptID uint) (map[model.ProctorEventType]int, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.ProctorEventType]int{}
	for eventType, count := range r.counts[attemptID] {
		out[eventType] = count
	}
	return out, nil
}

func (r *fakeEventRepo) CountsForAttempts(attemptIDs []uint) (map[uint]map[model.ProctorEventType]int, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	out := map[uint]map[model.ProctorEventType]int{}
	for _, id := range attemptIDs {
		counts, err := r.CountsByAttempt(id)
		if err != nil {
			return nil, err
		}
		out[id] = counts
	}
	return out, nil
}
