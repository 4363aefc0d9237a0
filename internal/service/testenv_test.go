package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/metrics"
)

// ── 测试夹具 ──

const (
	testTZ          = "America/Bogota"
	testTrimesterID = "tri-2025-1"
	testCohortID    = "cohort-2758"
	testOtherCohort = "cohort-2760"
	testInstructor  = "inst-ana"
	testInstructor2 = "inst-luis"
	testClassroomID = "room-101"
	testLearnerA    = "learner-a"
	testLearnerB    = "learner-b"
	testLearnerC    = "learner-c"
	testOutsider    = "learner-z" // 不在任何 ficha
	testMonday      = "2025-02-03"
)

type testEnv struct {
	t          *testing.T
	repo       *repository.Repository
	profiles   *mockProfileRepo
	cohorts    *mockCohortRepo
	classrooms *mockClassroomRepo
	trimesters *mockTrimesterRepo
	slots      *mockScheduleSlotRepo
	sessions   *mockClassSessionRepo
	events     *mockAccessEventRepo
	records    *mockAttendanceRepo
	changeLogs *mockChangeLogRepo
	audits     *mockMatchAuditRepo
	sysConfig  *mockSystemConfigRepo
	locker     *mockLocker

	clock   *clock.Fixed
	norm    *clock.Normalizer
	metrics *metrics.Metrics
	logger  *zap.Logger

	store   AttendanceStore
	matcher AttendanceMatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	norm, err := clock.NewNormalizer(testTZ)
	if err != nil {
		t.Fatalf("加载时区失败: %v", err)
	}

	env := &testEnv{
		t:          t,
		profiles:   newMockProfileRepo(),
		cohorts:    newMockCohortRepo(),
		classrooms: newMockClassroomRepo(),
		trimesters: newMockTrimesterRepo(),
		sessions:   newMockClassSessionRepo(),
		events:     newMockAccessEventRepo(),
		changeLogs: newMockChangeLogRepo(),
		audits:     newMockMatchAuditRepo(),
		sysConfig:  newMockSystemConfigRepo(),
		locker:     &mockLocker{},
		norm:       norm,
		metrics:    metrics.New(),
		logger:     zap.NewNop(),
	}
	env.slots = newMockScheduleSlotRepo(env.trimesters)
	env.records = newMockAttendanceRepo(env.profiles)

	env.repo = &repository.Repository{
		Profile:      env.profiles,
		Cohort:       env.cohorts,
		Classroom:    env.classrooms,
		Trimester:    env.trimesters,
		ScheduleSlot: env.slots,
		ClassSession: env.sessions,
		AccessEvent:  env.events,
		Attendance:   env.records,
		ChangeLog:    env.changeLogs,
		MatchAudit:   env.audits,
		SystemConfig: env.sysConfig,
		Locker:       env.locker,
	}

	// 基础数据
	env.profiles.add(testInstructor, "Ana Pérez", model.RoleInstructor)
	env.profiles.add(testInstructor2, "Luis Gómez", model.RoleInstructor)
	env.profiles.add(testLearnerA, "Andrea Ríos", model.RoleLearner)
	env.profiles.add(testLearnerB, "Bruno Díaz", model.RoleLearner)
	env.profiles.add(testLearnerC, "Carla Vélez", model.RoleLearner)
	env.profiles.add(testOutsider, "Zoe Mora", model.RoleLearner)

	env.cohorts.add(testCohortID, "2758")
	env.cohorts.add(testOtherCohort, "2760")
	env.cohorts.enroll(testCohortID, testLearnerA, testLearnerB, testLearnerC)

	env.classrooms.classrooms[testClassroomID] = &model.Classroom{ClassroomID: testClassroomID, Name: "Ambiente 101", IsActive: true}
	env.trimesters.trimesters[testTrimesterID] = &model.Trimester{
		TrimesterID: testTrimesterID,
		Name:        "2025-1",
		StartDate:   clock.DateOf(2025, time.January, 13),
		EndDate:     clock.DateOf(2025, time.April, 4),
		IsActive:    true,
	}

	env.clock = clock.NewFixed(env.at(testMonday, "07:00"))
	env.store = NewAttendanceStore(env.repo, env.clock, time.Second, time.Millisecond, env.metrics, env.logger)
	env.matcher = NewAttendanceMatcher(env.repo, env.store, env.norm, env.metrics, env.logger)
	return env
}

// at 机构时区下的 "YYYY-MM-DD" + "HH:MM"
func (e *testEnv) at(date, hhmm string) time.Time {
	e.t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, e.norm.Location())
	if err != nil {
		e.t.Fatalf("解析时间失败: %v", err)
	}
	return ts
}

func (e *testEnv) date(s string) time.Time {
	e.t.Helper()
	d, err := clock.ParseDate(s)
	if err != nil {
		e.t.Fatalf("解析日期失败: %v", err)
	}
	return d
}

// addSession 直接写入一个课次（绕过冲突检测）
func (e *testEnv) addSession(cohortID, date, start, end string, tolerance int) *model.ClassSession {
	e.t.Helper()
	s := &model.ClassSession{
		InstructorID:     testInstructor,
		CohortID:         cohortID,
		Competence:       "Programación orientada a objetos",
		SessionDate:      e.date(date),
		StartTime:        start,
		EndTime:          end,
		ToleranceMinutes: tolerance,
		IsActive:         true,
	}
	if err := e.sessions.Create(context.Background(), s); err != nil {
		e.t.Fatalf("创建课次失败: %v", err)
	}
	return s
}

func (e *testEnv) accessService() AccessService {
	return NewAccessService(e.repo, e.matcher, e.clock, e.logger)
}

func (e *testEnv) attendanceService() AttendanceService {
	return NewAttendanceService(e.repo, e.store, e.norm, 186, e.logger)
}

func (e *testEnv) checkIn(learnerID string, ts time.Time) *dto.MatchOutcome {
	e.t.Helper()
	out, err := e.accessService().CheckIn(context.Background(), &dto.AccessEventRequest{
		ProfileID:  learnerID,
		OccurredAt: ts,
		DeviceID:   "torniquete-1",
	})
	if err != nil {
		e.t.Fatalf("CheckIn 应成功: %v", err)
	}
	return out
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
