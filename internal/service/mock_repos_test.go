package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	pkgerrors "ficha-attendance/backend/pkg/errors"
)

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]*model.Profile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) add(id, name, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = &model.Profile{ProfileID: id, FullName: name, DocumentNumber: "doc-" + id, Role: role, IsActive: true}
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) ListByIDs(_ context.Context, ids []string) ([]model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []model.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

// ── Mock CohortRepository ──

type mockCohortRepo struct {
	mu          sync.RWMutex
	cohorts     map[string]*model.Cohort
	enrollments []model.CohortEnrollment
}

func newMockCohortRepo() *mockCohortRepo {
	return &mockCohortRepo{cohorts: make(map[string]*model.Cohort)}
}

func (m *mockCohortRepo) add(id, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cohorts[id] = &model.Cohort{CohortID: id, Code: code, ProgramName: "Análisis y Desarrollo de Software", IsActive: true}
}

func (m *mockCohortRepo) enroll(cohortID string, learnerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range learnerIDs {
		m.enrollments = append(m.enrollments, model.CohortEnrollment{
			EnrollmentID: uuid.NewString(), CohortID: cohortID, LearnerID: id, IsActive: true,
		})
	}
}

func (m *mockCohortRepo) GetByID(_ context.Context, id string) (*model.Cohort, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cohorts[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCohortRepo) ListLearnerIDs(_ context.Context, cohortID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, e := range m.enrollments {
		if e.CohortID == cohortID && e.IsActive {
			ids = append(ids, e.LearnerID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockCohortRepo) ListCohortIDsByLearner(_ context.Context, learnerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, e := range m.enrollments {
		if e.LearnerID != learnerID || !e.IsActive {
			continue
		}
		if c, ok := m.cohorts[e.CohortID]; ok && c.IsActive {
			ids = append(ids, e.CohortID)
		}
	}
	return ids, nil
}

func (m *mockCohortRepo) IsEnrolled(_ context.Context, cohortID, learnerID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.enrollments {
		if e.CohortID == cohortID && e.LearnerID == learnerID && e.IsActive {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock ClassroomRepository ──

type mockClassroomRepo struct {
	classrooms map[string]*model.Classroom
}

func newMockClassroomRepo() *mockClassroomRepo {
	return &mockClassroomRepo{classrooms: make(map[string]*model.Classroom)}
}

func (m *mockClassroomRepo) GetByID(_ context.Context, id string) (*model.Classroom, error) {
	if c, ok := m.classrooms[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TrimesterRepository ──

type mockTrimesterRepo struct {
	trimesters map[string]*model.Trimester
}

func newMockTrimesterRepo() *mockTrimesterRepo {
	return &mockTrimesterRepo{trimesters: make(map[string]*model.Trimester)}
}

func (m *mockTrimesterRepo) GetByID(_ context.Context, id string) (*model.Trimester, error) {
	if t, ok := m.trimesters[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTrimesterRepo) ListActiveCovering(_ context.Context, date time.Time) ([]model.Trimester, error) {
	var result []model.Trimester
	for _, t := range m.trimesters {
		if t.IsActive && t.Covers(date) {
			result = append(result, *t)
		}
	}
	return result, nil
}

// ── Mock ScheduleSlotRepository ──

type mockScheduleSlotRepo struct {
	mu         sync.RWMutex
	slots      map[string]*model.ScheduleSlot
	trimesters *mockTrimesterRepo
}

func newMockScheduleSlotRepo(trimesters *mockTrimesterRepo) *mockScheduleSlotRepo {
	return &mockScheduleSlotRepo{slots: make(map[string]*model.ScheduleSlot), trimesters: trimesters}
}

func (m *mockScheduleSlotRepo) Create(_ context.Context, slot *model.ScheduleSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot.SlotID == "" {
		slot.SlotID = uuid.NewString()
	}
	slot.Version = 1
	cp := *slot
	m.slots[slot.SlotID] = &cp
	return nil
}

func (m *mockScheduleSlotRepo) GetByID(_ context.Context, id string) (*model.ScheduleSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleSlotRepo) list(match func(s *model.ScheduleSlot) bool) []model.ScheduleSlot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []model.ScheduleSlot
	for _, s := range m.slots {
		if s.IsActive && match(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].SlotID < result[j].SlotID
	})
	return result
}

func (m *mockScheduleSlotRepo) List(_ context.Context, f repository.ScheduleSlotFilter) ([]model.ScheduleSlot, error) {
	return m.list(func(s *model.ScheduleSlot) bool {
		return (f.TrimesterID == "" || s.TrimesterID == f.TrimesterID) &&
			(f.CohortID == "" || s.CohortID == f.CohortID) &&
			(f.InstructorID == "" || s.InstructorID == f.InstructorID)
	}), nil
}

func (m *mockScheduleSlotRepo) ListActiveByTrimesterAndDay(_ context.Context, trimesterID string, dow int) ([]model.ScheduleSlot, error) {
	return m.list(func(s *model.ScheduleSlot) bool {
		return s.TrimesterID == trimesterID && s.DayOfWeek == dow
	}), nil
}

func (m *mockScheduleSlotRepo) ListActiveOnDate(ctx context.Context, date time.Time, dow int) ([]model.ScheduleSlot, error) {
	return m.list(func(s *model.ScheduleSlot) bool {
		t, err := m.trimesters.GetByID(ctx, s.TrimesterID)
		return err == nil && s.DayOfWeek == dow && t.Covers(date)
	}), nil
}

func (m *mockScheduleSlotRepo) Deactivate(_ context.Context, slot *model.ScheduleSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.slots[slot.SlotID]
	if !ok || stored.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.IsActive = false
	stored.Version++
	slot.IsActive = false
	slot.Version = stored.Version
	return nil
}

// ── Mock ClassSessionRepository ──

type mockClassSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*model.ClassSession
}

func newMockClassSessionRepo() *mockClassSessionRepo {
	return &mockClassSessionRepo{sessions: make(map[string]*model.ClassSession)}
}

func (m *mockClassSessionRepo) Create(_ context.Context, session *model.ClassSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(session)
	return nil
}

func (m *mockClassSessionRepo) insertLocked(session *model.ClassSession) {
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	session.Version = 1
	cp := *session
	m.sessions[session.SessionID] = &cp
}

func (m *mockClassSessionRepo) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassSessionRepo) list(match func(s *model.ClassSession) bool) []model.ClassSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []model.ClassSession
	for _, s := range m.sessions {
		if match(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SessionDate.Equal(result[j].SessionDate) {
			return result[i].SessionDate.Before(result[j].SessionDate)
		}
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].SessionID < result[j].SessionID
	})
	return result
}

func (m *mockClassSessionRepo) List(_ context.Context, f repository.ClassSessionFilter) ([]model.ClassSession, int64, error) {
	all := m.list(func(s *model.ClassSession) bool {
		return (f.CohortID == "" || s.CohortID == f.CohortID) &&
			(f.InstructorID == "" || s.InstructorID == f.InstructorID) &&
			(f.From == nil || !s.SessionDate.Before(*f.From)) &&
			(f.To == nil || !s.SessionDate.After(*f.To))
	})
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []model.ClassSession{}, total, nil
	}
	end := len(all)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func (m *mockClassSessionRepo) ListActiveByDate(_ context.Context, date time.Time) ([]model.ClassSession, error) {
	return m.list(func(s *model.ClassSession) bool {
		return s.IsActive && s.SessionDate.Equal(date)
	}), nil
}

func (m *mockClassSessionRepo) ListActiveByCohortsAndDate(_ context.Context, cohortIDs []string, date time.Time) ([]model.ClassSession, error) {
	set := make(map[string]bool, len(cohortIDs))
	for _, id := range cohortIDs {
		set[id] = true
	}
	return m.list(func(s *model.ClassSession) bool {
		return s.IsActive && set[s.CohortID] && s.SessionDate.Equal(date)
	}), nil
}

func (m *mockClassSessionRepo) ListActiveByCohortAndRange(_ context.Context, cohortID string, from, to time.Time) ([]model.ClassSession, error) {
	return m.list(func(s *model.ClassSession) bool {
		return s.IsActive && s.CohortID == cohortID && !s.SessionDate.Before(from) && !s.SessionDate.After(to)
	}), nil
}

func (m *mockClassSessionRepo) ListActiveByRange(_ context.Context, from, to time.Time) ([]model.ClassSession, error) {
	return m.list(func(s *model.ClassSession) bool {
		return s.IsActive && !s.SessionDate.Before(from) && !s.SessionDate.After(to)
	}), nil
}

func (m *mockClassSessionRepo) InsertGenerated(_ context.Context, sessions []model.ClassSession) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var created int64
	for i := range sessions {
		s := &sessions[i]
		if s.SlotID != nil && m.hasSlotDateLocked(*s.SlotID, s.SessionDate) {
			continue
		}
		m.insertLocked(s)
		created++
	}
	return created, nil
}

func (m *mockClassSessionRepo) hasSlotDateLocked(slotID string, date time.Time) bool {
	for _, s := range m.sessions {
		if s.SlotID != nil && *s.SlotID == slotID && s.SessionDate.Equal(date) {
			return true
		}
	}
	return false
}

func (m *mockClassSessionRepo) Deactivate(_ context.Context, session *model.ClassSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[session.SessionID]
	if !ok || stored.Version != session.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.IsActive = false
	stored.Version++
	session.IsActive = false
	session.Version = stored.Version
	return nil
}

// ── Mock AccessEventRepository ──

type mockAccessEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.AccessEvent
}

func newMockAccessEventRepo() *mockAccessEventRepo {
	return &mockAccessEventRepo{events: make(map[string]*model.AccessEvent)}
}

func (m *mockAccessEventRepo) Create(_ context.Context, event *model.AccessEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.EventID]; ok {
		return false, nil
	}
	cp := *event
	m.events[event.EventID] = &cp
	return true, nil
}

func (m *mockAccessEventRepo) GetByID(_ context.Context, id string) (*model.AccessEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu       sync.Mutex
	records  map[string]*model.AttendanceRecord // "session:learner"
	profiles *mockProfileRepo
	updates  int
}

func newMockAttendanceRepo(profiles *mockProfileRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord), profiles: profiles}
}

func (m *mockAttendanceRepo) GetByPair(_ context.Context, sessionID, learnerID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[sessionID+":"+learnerID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) InsertIfAbsent(_ context.Context, rec *model.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SessionID + ":" + rec.LearnerID
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	rec.Version = 1
	cp := *rec
	m.records[key] = &cp
	return true, nil
}

func (m *mockAttendanceRepo) Update(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SessionID + ":" + rec.LearnerID
	stored, ok := m.records[key]
	if !ok || stored.Version != rec.Version {
		return pkgerrors.ErrOptimisticLock
	}
	rec.Version++
	cp := *rec
	m.records[key] = &cp
	m.updates++
	return nil
}

func (m *mockAttendanceRepo) withLearner(r model.AttendanceRecord) model.AttendanceRecord {
	if p, err := m.profiles.GetByID(context.Background(), r.LearnerID); err == nil {
		r.Learner = p
	}
	return r
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			result = append(result, m.withLearner(*r))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LearnerID < result[j].LearnerID })
	return result, nil
}

func (m *mockAttendanceRepo) ListBySessions(_ context.Context, sessionIDs []string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		set[id] = true
	}
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if set[r.SessionID] {
			result = append(result, m.withLearner(*r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SessionID != result[j].SessionID {
			return result[i].SessionID < result[j].SessionID
		}
		return result[i].LearnerID < result[j].LearnerID
	})
	return result, nil
}

func (m *mockAttendanceRepo) get(sessionID, learnerID string) *model.AttendanceRecord {
	r, _ := m.GetByPair(context.Background(), sessionID, learnerID)
	return r
}

func (m *mockAttendanceRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ── Mock AttendanceChangeLogRepository ──

type mockChangeLogRepo struct {
	mu   sync.Mutex
	logs []model.AttendanceChangeLog
}

func newMockChangeLogRepo() *mockChangeLogRepo {
	return &mockChangeLogRepo{}
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.AttendanceChangeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.ChangeID == "" {
		log.ChangeID = uuid.NewString()
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListByRecord(_ context.Context, recordID string) ([]model.AttendanceChangeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceChangeLog
	for _, l := range m.logs {
		if l.RecordID == recordID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ── Mock MatchAuditRepository ──

type mockMatchAuditRepo struct {
	mu     sync.Mutex
	audits []model.MatchAudit
}

func newMockMatchAuditRepo() *mockMatchAuditRepo {
	return &mockMatchAuditRepo{}
}

func (m *mockMatchAuditRepo) Create(_ context.Context, audit *model.MatchAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if audit.AuditID == "" {
		audit.AuditID = uuid.NewString()
	}
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *mockMatchAuditRepo) ListByEvent(_ context.Context, eventID string) ([]model.MatchAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.MatchAudit
	for _, a := range m.audits {
		if a.AccessEventID == eventID {
			result = append(result, a)
		}
	}
	return result, nil
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct {
	mu  sync.Mutex
	cfg *model.SystemConfig
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{cfg: model.DefaultSystemConfig()}
}

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *mockSystemConfigRepo) Update(_ context.Context, cfg *model.SystemConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.Singleton = true
	cp := *cfg
	m.cfg = &cp
	return nil
}

// ── Mock Locker ──

type mockLocker struct {
	mu    sync.Mutex
	calls [][]string
	err   error
	// failNext 接下来的若干次加锁按锁等待超时失败，之后恢复
	failNext int
}

func (m *mockLocker) LockKeys(_ context.Context, _ time.Duration, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), keys...))
	if m.failNext > 0 {
		m.failNext--
		return pkgerrors.ErrConcurrencyConflict
	}
	return m.err
}
