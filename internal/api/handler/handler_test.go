package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/clock"
	pkgerrors "ficha-attendance/backend/pkg/errors"
	"ficha-attendance/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testUserID    = "6f1c2e7a-3b4d-4c5e-8f90-1a2b3c4d5e6f"
	testLearnerID = "0b7e4d2c-9a18-4f3e-b6c5-7d8e9f0a1b2c"
	testSessionID = "c3d4e5f6-a7b8-4c9d-8e0f-1a2b3c4d5e6f"
	testCohortID  = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
	testTrimester = "f0e1d2c3-b4a5-4968-8776-655443322110"
	testInstrID   = "11223344-5566-4778-8899-aabbccddeeff"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AccessService ──

type mockAccessService struct {
	checkInResult  *dto.MatchOutcome
	checkInErr     error
	checkOutResult *dto.AccessEventResponse
	checkOutErr    error
	lastReq        *dto.AccessEventRequest
}

func (m *mockAccessService) CheckIn(_ context.Context, req *dto.AccessEventRequest) (*dto.MatchOutcome, error) {
	m.lastReq = req
	return m.checkInResult, m.checkInErr
}
func (m *mockAccessService) CheckOut(_ context.Context, req *dto.AccessEventRequest) (*dto.AccessEventResponse, error) {
	m.lastReq = req
	return m.checkOutResult, m.checkOutErr
}

// ── Mock ScheduleSlotService ──

type mockSlotService struct {
	checkResult   *dto.ConflictCheckResponse
	checkErr      error
	createResult  *dto.ScheduleSlotResponse
	createErr     error
	listResult    []dto.ScheduleSlotResponse
	listErr       error
	deactivateErr error
	callerID      string
}

func (m *mockSlotService) CheckConflict(_ context.Context, _ *dto.ScheduleSlotRequest) (*dto.ConflictCheckResponse, error) {
	return m.checkResult, m.checkErr
}
func (m *mockSlotService) Create(_ context.Context, _ *dto.ScheduleSlotRequest, callerID string) (*dto.ScheduleSlotResponse, error) {
	m.callerID = callerID
	return m.createResult, m.createErr
}
func (m *mockSlotService) GetByID(_ context.Context, _ string) (*dto.ScheduleSlotResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockSlotService) List(_ context.Context, _ *dto.ScheduleSlotListRequest) ([]dto.ScheduleSlotResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockSlotService) Deactivate(_ context.Context, _ string, callerID string) error {
	m.callerID = callerID
	return m.deactivateErr
}

// ── Mock ClassSessionService ──

type mockSessionService struct {
	createResult   *dto.SessionResponse
	createErr      error
	listResult     *dto.PageResponse[dto.SessionResponse]
	listErr        error
	deactivateErr  error
	generateResult *dto.GenerateSessionsResponse
	generateErr    error
	lastList       *dto.SessionListRequest
}

func (m *mockSessionService) Create(_ context.Context, _ *dto.CreateSessionRequest, _ string) (*dto.SessionResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockSessionService) GetByID(_ context.Context, _ string) (*dto.SessionResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockSessionService) List(_ context.Context, req *dto.SessionListRequest) (*dto.PageResponse[dto.SessionResponse], error) {
	m.lastList = req
	return m.listResult, m.listErr
}
func (m *mockSessionService) Deactivate(_ context.Context, _ string, _ string) error {
	return m.deactivateErr
}
func (m *mockSessionService) GenerateFromSlots(_ context.Context, _ *dto.GenerateSessionsRequest, _ string) (*dto.GenerateSessionsResponse, error) {
	return m.generateResult, m.generateErr
}

// ── Mock AttendanceService ──

type mockAttendanceService struct {
	markResult    *dto.AttendanceRecordResponse
	markErr       error
	sessionResult *dto.SessionAttendanceResponse
	sessionErr    error
	cohortResult  []dto.AttendanceRecordResponse
	cohortErr     error
	sweepResult   *dto.SweepResult
	sweepErr      error

	markSession, markLearner, markCaller string
	sweepAt                              time.Time
}

func (m *mockAttendanceService) MarkManual(_ context.Context, sessionID, learnerID string, _ *dto.ManualMarkRequest, callerID string) (*dto.AttendanceRecordResponse, error) {
	m.markSession, m.markLearner, m.markCaller = sessionID, learnerID, callerID
	return m.markResult, m.markErr
}
func (m *mockAttendanceService) ListBySession(_ context.Context, _ string) (*dto.SessionAttendanceResponse, error) {
	return m.sessionResult, m.sessionErr
}
func (m *mockAttendanceService) ListByCohort(_ context.Context, _ string, _ *dto.DateRangeRequest) ([]dto.AttendanceRecordResponse, error) {
	return m.cohortResult, m.cohortErr
}
func (m *mockAttendanceService) Sweep(_ context.Context, now time.Time) (*dto.SweepResult, error) {
	m.sweepAt = now
	return m.sweepResult, m.sweepErr
}

// ── Mock StatsService ──

type mockStatsService struct {
	sessionResult *dto.SessionStatsResponse
	sessionErr    error
	cohortResult  *dto.CohortStatsResponse
	cohortErr     error
}

func (m *mockStatsService) SessionStats(_ context.Context, _ string) (*dto.SessionStatsResponse, error) {
	return m.sessionResult, m.sessionErr
}
func (m *mockStatsService) CohortStats(_ context.Context, _ string, _ *dto.DateRangeRequest) (*dto.CohortStatsResponse, error) {
	return m.cohortResult, m.cohortErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	ics      []byte
	filename string
	err      error
}

func (m *mockExportService) ExportAttendance(_ context.Context, _ *dto.ExportAttendanceRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _ *dto.ExportCalendarRequest) ([]byte, string, error) {
	return m.ics, m.filename, m.err
}

// ── Mock SystemConfigService ──

type mockConfigService struct {
	result   *dto.SystemConfigResponse
	err      error
	callerID string
}

func (m *mockConfigService) Get(_ context.Context) (*dto.SystemConfigResponse, error) {
	return m.result, m.err
}
func (m *mockConfigService) Update(_ context.Context, _ *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error) {
	m.callerID = callerID
	return m.result, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// newRouter 返回注入了登录态的引擎；authed=false 时模拟 JWT 中间件缺失
func newRouter(authed bool) *gin.Engine {
	r := gin.New()
	if authed {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", testUserID)
			c.Set("role", "admin")
			c.Next()
		})
	}
	return r
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		rd = jsonBody(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus, wantCode int) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("HTTP 状态期望 %d，实际 %d，body=%s", wantStatus, w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Code != wantCode {
		t.Errorf("业务码期望 %d，实际 %d", wantCode, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AccessHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAccessHandler_CheckIn_Matched(t *testing.T) {
	sid := testSessionID
	mock := &mockAccessService{checkInResult: &dto.MatchOutcome{
		EventID: "evt-1", Matched: true, SessionID: &sid, Status: "LATE", StatusLabel: "Tarde",
	}}
	h := NewAccessHandler(mock)

	r := newRouter(true)
	r.POST("/access/check-in", h.CheckIn)
	w := doJSON(r, "POST", "/access/check-in", map[string]string{
		"profile_id":  testLearnerID,
		"occurred_at": "2025-02-03T08:09:00-05:00",
		"device_id":   "torniquete-1",
	})

	assertStatusCode(t, w, http.StatusOK, 0)
	if mock.lastReq == nil || mock.lastReq.ProfileID != testLearnerID {
		t.Fatalf("请求未透传到服务层: %+v", mock.lastReq)
	}
	if mock.lastReq.OccurredAt.IsZero() {
		t.Error("occurred_at 应被解析")
	}
	if !strings.Contains(w.Body.String(), `"status":"LATE"`) {
		t.Errorf("响应应包含状态, body=%s", w.Body.String())
	}
}

func TestAccessHandler_CheckIn_Unmatched(t *testing.T) {
	mock := &mockAccessService{checkInResult: &dto.MatchOutcome{EventID: "evt-2", Reason: "NO_SESSION_TODAY"}}
	h := NewAccessHandler(mock)

	r := newRouter(true)
	r.POST("/access/check-in", h.CheckIn)
	w := doJSON(r, "POST", "/access/check-in", map[string]string{"profile_id": testLearnerID})

	// 未匹配不是错误
	assertStatusCode(t, w, http.StatusOK, 0)
	if !strings.Contains(w.Body.String(), `"matched":false`) {
		t.Errorf("期望 matched=false, body=%s", w.Body.String())
	}
}

func TestAccessHandler_CheckIn_BadRequest(t *testing.T) {
	h := NewAccessHandler(&mockAccessService{})
	r := newRouter(true)
	r.POST("/access/check-in", h.CheckIn)

	cases := map[string]interface{}{
		"缺少 profile_id":  map[string]string{},
		"profile_id 非法": map[string]string{"profile_id": "not-a-uuid"},
		"event_id 非法":   map[string]string{"profile_id": testLearnerID, "event_id": "xyz"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := doJSON(r, "POST", "/access/check-in", body)
			assertStatusCode(t, w, http.StatusBadRequest, 22000)
		})
	}
}

func TestAccessHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"ProfileNotFound", service.ErrProfileNotFound, 404, 11004},
		{"EventIDReused", service.ErrEventIDReused, 409, 22001},
		{"Concurrency", pkgerrors.ErrConcurrencyConflict, 503, 10006},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccessHandler(&mockAccessService{checkInErr: tt.err})
			r := newRouter(true)
			r.POST("/access/check-in", h.CheckIn)
			w := doJSON(r, "POST", "/access/check-in", map[string]string{"profile_id": testLearnerID})
			assertStatusCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestAccessHandler_CheckOut_Success(t *testing.T) {
	mock := &mockAccessService{checkOutResult: &dto.AccessEventResponse{EventID: "evt-3", Direction: "EXIT"}}
	h := NewAccessHandler(mock)

	r := newRouter(true)
	r.POST("/access/check-out", h.CheckOut)
	w := doJSON(r, "POST", "/access/check-out", map[string]string{"profile_id": testLearnerID})

	assertStatusCode(t, w, http.StatusOK, 0)
}

// ═══════════════════════════════════════════════════════════
// ScheduleSlotHandler Tests
// ═══════════════════════════════════════════════════════════

func validSlotBody() map[string]interface{} {
	return map[string]interface{}{
		"trimester_id":  testTrimester,
		"day_of_week":   1,
		"start_time":    "08:00",
		"end_time":      "10:00",
		"competence":    "Bases de datos",
		"instructor_id": testInstrID,
		"cohort_id":     testCohortID,
	}
}

func TestScheduleSlotHandler_Create_Success(t *testing.T) {
	mock := &mockSlotService{createResult: &dto.ScheduleSlotResponse{ID: "slot-1", DayOfWeek: 1}}
	h := NewScheduleSlotHandler(mock, &mockSessionService{})

	r := newRouter(true)
	r.POST("/schedule-slots", h.CreateSlot)
	w := doJSON(r, "POST", "/schedule-slots", validSlotBody())

	assertStatusCode(t, w, http.StatusCreated, 0)
	if mock.callerID != testUserID {
		t.Errorf("操作人应取自上下文, got %q", mock.callerID)
	}
}

func TestScheduleSlotHandler_Create_Conflict(t *testing.T) {
	conflicts := []dto.ScheduleConflict{{
		Dimension:           "INSTRUCTOR_BUSY",
		ExistingSlotSummary: dto.BlockSummary{ID: "slot-0", Kind: "slot", StartTime: "09:00", EndTime: "11:00"},
	}}
	mock := &mockSlotService{createErr: &service.ConflictError{Conflicts: conflicts}}
	h := NewScheduleSlotHandler(mock, &mockSessionService{})

	r := newRouter(true)
	r.POST("/schedule-slots", h.CreateSlot)
	w := doJSON(r, "POST", "/schedule-slots", validSlotBody())

	assertStatusCode(t, w, http.StatusConflict, 20001)
	var body struct {
		Data struct {
			Conflicts []dto.ScheduleConflict `json:"conflicts"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(body.Data.Conflicts) != 1 || body.Data.Conflicts[0].Dimension != "INSTRUCTOR_BUSY" {
		t.Errorf("冲突明细不正确: %+v", body.Data.Conflicts)
	}
}

func TestScheduleSlotHandler_Create_Unauthenticated(t *testing.T) {
	h := NewScheduleSlotHandler(&mockSlotService{}, &mockSessionService{})

	r := newRouter(false)
	r.POST("/schedule-slots", h.CreateSlot)
	w := doJSON(r, "POST", "/schedule-slots", validSlotBody())

	assertStatusCode(t, w, http.StatusUnauthorized, 10002)
}

func TestScheduleSlotHandler_CheckConflict_NoSideEffect(t *testing.T) {
	mock := &mockSlotService{checkResult: &dto.ConflictCheckResponse{HasConflict: false, Conflicts: []dto.ScheduleConflict{}}}
	h := NewScheduleSlotHandler(mock, &mockSessionService{})

	r := newRouter(true)
	r.POST("/schedule-slots/conflict-check", h.CheckConflict)
	w := doJSON(r, "POST", "/schedule-slots/conflict-check", validSlotBody())

	assertStatusCode(t, w, http.StatusOK, 0)
	if mock.callerID != "" {
		t.Error("预检不应调用 Create")
	}
}

func TestScheduleSlotHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"InvalidWindow", service.ErrInvalidTimeWindow, 400, 12001},
		{"InvalidDay", service.ErrInvalidDayOfWeek, 400, 12002},
		{"Tolerance", service.ErrInvalidTolerance, 400, 12007},
		{"TrimesterNotFound", service.ErrTrimesterNotFound, 404, 11001},
		{"ClassroomNotFound", service.ErrClassroomNotFound, 404, 11006},
		{"Concurrency", pkgerrors.ErrConcurrencyConflict, 503, 10006},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewScheduleSlotHandler(&mockSlotService{createErr: tt.err}, &mockSessionService{})
			r := newRouter(true)
			r.POST("/schedule-slots", h.CreateSlot)
			w := doJSON(r, "POST", "/schedule-slots", validSlotBody())
			assertStatusCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestScheduleSlotHandler_Deactivate(t *testing.T) {
	mock := &mockSlotService{}
	h := NewScheduleSlotHandler(mock, &mockSessionService{})
	r := newRouter(true)
	r.DELETE("/schedule-slots/:id", h.DeactivateSlot)

	w := doJSON(r, "DELETE", "/schedule-slots/slot-1", nil)
	assertStatusCode(t, w, http.StatusOK, 0)

	mock.deactivateErr = service.ErrSlotNotFound
	w = doJSON(r, "DELETE", "/schedule-slots/slot-x", nil)
	assertStatusCode(t, w, http.StatusNotFound, 20002)

	mock.deactivateErr = pkgerrors.ErrOptimisticLock
	w = doJSON(r, "DELETE", "/schedule-slots/slot-1", nil)
	assertStatusCode(t, w, http.StatusConflict, 10007)
}

func TestScheduleSlotHandler_GenerateSessions(t *testing.T) {
	sessions := &mockSessionService{generateResult: &dto.GenerateSessionsResponse{
		From: "2025-02-03", To: "2025-02-09", Candidates: 4, Created: 3, Skipped: 1,
	}}
	h := NewScheduleSlotHandler(&mockSlotService{}, sessions)
	r := newRouter(true)
	r.POST("/schedule-slots/generate-sessions", h.GenerateSessions)

	w := doJSON(r, "POST", "/schedule-slots/generate-sessions", map[string]string{
		"trimester_id": testTrimester, "from": "2025-02-03", "to": "2025-02-09",
	})
	assertStatusCode(t, w, http.StatusOK, 0)

	w = doJSON(r, "POST", "/schedule-slots/generate-sessions", map[string]string{"trimester_id": testTrimester})
	assertStatusCode(t, w, http.StatusBadRequest, 20000)
}

// ═══════════════════════════════════════════════════════════
// ClassSessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestClassSessionHandler_List_BindsQuery(t *testing.T) {
	mock := &mockSessionService{listResult: &dto.PageResponse[dto.SessionResponse]{Items: []dto.SessionResponse{}, Page: 2, PageSize: 10}}
	h := NewClassSessionHandler(mock)
	r := newRouter(true)
	r.GET("/sessions", h.ListSessions)

	w := doJSON(r, "GET", "/sessions?cohort_id="+testCohortID+"&from=2025-02-01&to=2025-02-28&page=2&page_size=10", nil)
	assertStatusCode(t, w, http.StatusOK, 0)
	if mock.lastList == nil || mock.lastList.CohortID != testCohortID || mock.lastList.GetPage() != 2 {
		t.Errorf("查询参数未正确绑定: %+v", mock.lastList)
	}

	w = doJSON(r, "GET", "/sessions?page_size=1000", nil)
	assertStatusCode(t, w, http.StatusBadRequest, 21000)
}

func TestClassSessionHandler_Deactivate_NotFound(t *testing.T) {
	h := NewClassSessionHandler(&mockSessionService{deactivateErr: service.ErrSessionNotFound})
	r := newRouter(true)
	r.PUT("/sessions/:id/deactivate", h.DeactivateSession)

	w := doJSON(r, "PUT", "/sessions/"+testSessionID+"/deactivate", nil)
	assertStatusCode(t, w, http.StatusNotFound, 21001)
}

func TestClassSessionHandler_Create_Conflict(t *testing.T) {
	h := NewClassSessionHandler(&mockSessionService{createErr: &service.ConflictError{}})
	r := newRouter(true)
	r.POST("/sessions", h.CreateSession)

	w := doJSON(r, "POST", "/sessions", map[string]interface{}{
		"instructor_id": testInstrID,
		"cohort_id":     testCohortID,
		"competence":    "Inglés técnico",
		"session_date":  "2025-02-04",
		"start_time":    "14:00",
		"end_time":      "16:00",
	})
	assertStatusCode(t, w, http.StatusConflict, 20001)
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_Mark_Success(t *testing.T) {
	mock := &mockAttendanceService{markResult: &dto.AttendanceRecordResponse{Status: "EXCUSED", Source: "MANUAL"}}
	h := NewAttendanceHandler(mock, clock.System{})
	r := newRouter(true)
	r.PUT("/sessions/:id/attendance/:learner_id", h.MarkAttendance)

	w := doJSON(r, "PUT", "/sessions/"+testSessionID+"/attendance/"+testLearnerID, map[string]string{
		"status": "justificado", "notes": "incapacidad médica",
	})

	assertStatusCode(t, w, http.StatusOK, 0)
	if mock.markSession != testSessionID || mock.markLearner != testLearnerID || mock.markCaller != testUserID {
		t.Errorf("路径参数或操作人未透传: %q %q %q", mock.markSession, mock.markLearner, mock.markCaller)
	}
}

func TestAttendanceHandler_Mark_MissingStatus(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{}, clock.System{})
	r := newRouter(true)
	r.PUT("/sessions/:id/attendance/:learner_id", h.MarkAttendance)

	w := doJSON(r, "PUT", "/sessions/"+testSessionID+"/attendance/"+testLearnerID, map[string]string{})
	assertStatusCode(t, w, http.StatusBadRequest, 23000)
}

func TestAttendanceHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"InvalidStatus", service.ErrInvalidStatus, 400, 23001},
		{"NotInCohort", service.ErrLearnerNotInCohort, 400, 23002},
		{"SessionNotFound", service.ErrSessionNotFound, 404, 21001},
		{"SessionInactive", service.ErrSessionInactive, 400, 21002},
		{"LearnerNotFound", service.ErrLearnerNotFound, 404, 11003},
		{"Concurrency", pkgerrors.ErrConcurrencyConflict, 503, 10006},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAttendanceHandler(&mockAttendanceService{markErr: tt.err}, clock.System{})
			r := newRouter(true)
			r.PUT("/sessions/:id/attendance/:learner_id", h.MarkAttendance)
			w := doJSON(r, "PUT", "/sessions/"+testSessionID+"/attendance/"+testLearnerID, map[string]string{"status": "PRESENT"})
			assertStatusCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestAttendanceHandler_CohortAttendance_RequiresRange(t *testing.T) {
	mock := &mockAttendanceService{cohortResult: []dto.AttendanceRecordResponse{{Status: "PRESENT"}}}
	h := NewAttendanceHandler(mock, clock.System{})
	r := newRouter(true)
	r.GET("/cohorts/:id/attendance", h.GetCohortAttendance)

	w := doJSON(r, "GET", "/cohorts/"+testCohortID+"/attendance?from=2025-02-01", nil)
	assertStatusCode(t, w, http.StatusBadRequest, 23000)

	w = doJSON(r, "GET", "/cohorts/"+testCohortID+"/attendance?from=2025-02-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusOK, 0)

	mock.cohortErr = service.ErrDateRangeTooLarge
	w = doJSON(r, "GET", "/cohorts/"+testCohortID+"/attendance?from=2024-01-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusBadRequest, 12005)
}

func TestAttendanceHandler_Sweep_PartialFailure(t *testing.T) {
	now := time.Date(2025, time.February, 3, 13, 0, 0, 0, time.UTC)
	mock := &mockAttendanceService{
		sweepResult: &dto.SweepResult{Date: "2025-02-03", SessionsChecked: 2, SessionsSwept: 1, Failed: 1},
		sweepErr:    pkgerrors.ErrConcurrencyConflict,
	}
	h := NewAttendanceHandler(mock, clock.NewFixed(now))
	r := newRouter(true)
	r.POST("/attendance/sweep", h.Sweep)

	w := doJSON(r, "POST", "/attendance/sweep", nil)
	assertStatusCode(t, w, http.StatusOK, 0)
	if !mock.sweepAt.Equal(now) {
		t.Errorf("Sweep 应使用注入的时钟, got %v", mock.sweepAt)
	}
	if !strings.Contains(w.Body.String(), `"failed":1`) {
		t.Errorf("响应应给出失败数, body=%s", w.Body.String())
	}
}

func TestAttendanceHandler_SessionAttendance(t *testing.T) {
	mock := &mockAttendanceService{sessionResult: &dto.SessionAttendanceResponse{DefaultsCreated: 2}}
	h := NewAttendanceHandler(mock, clock.System{})
	r := newRouter(true)
	r.GET("/sessions/:id/attendance", h.GetSessionAttendance)

	w := doJSON(r, "GET", "/sessions/"+testSessionID+"/attendance", nil)
	assertStatusCode(t, w, http.StatusOK, 0)

	mock.sessionErr = service.ErrSessionNotFound
	w = doJSON(r, "GET", "/sessions/"+testSessionID+"/attendance", nil)
	assertStatusCode(t, w, http.StatusNotFound, 21001)
}

// ═══════════════════════════════════════════════════════════
// StatsHandler Tests
// ═══════════════════════════════════════════════════════════

func TestStatsHandler_SessionStats(t *testing.T) {
	mock := &mockStatsService{sessionResult: &dto.SessionStatsResponse{}}
	h := NewStatsHandler(mock)
	r := newRouter(true)
	r.GET("/sessions/:id/stats", h.GetSessionStats)

	w := doJSON(r, "GET", "/sessions/"+testSessionID+"/stats", nil)
	assertStatusCode(t, w, http.StatusOK, 0)

	mock.sessionErr = service.ErrSessionNotFound
	w = doJSON(r, "GET", "/sessions/"+testSessionID+"/stats", nil)
	assertStatusCode(t, w, http.StatusNotFound, 21001)
}

func TestStatsHandler_CohortStats(t *testing.T) {
	mock := &mockStatsService{cohortResult: &dto.CohortStatsResponse{}}
	h := NewStatsHandler(mock)
	r := newRouter(true)
	r.GET("/cohorts/:id/stats", h.GetCohortStats)

	w := doJSON(r, "GET", "/cohorts/"+testCohortID+"/stats", nil)
	assertStatusCode(t, w, http.StatusBadRequest, 24000)

	w = doJSON(r, "GET", "/cohorts/"+testCohortID+"/stats?from=2025-02-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusOK, 0)

	mock.cohortErr = service.ErrInvalidDateRange
	w = doJSON(r, "GET", "/cohorts/"+testCohortID+"/stats?from=2025-03-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusBadRequest, 12004)

	mock.cohortErr = service.ErrCohortNotFound
	w = doJSON(r, "GET", "/cohorts/"+testCohortID+"/stats?from=2025-02-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusNotFound, 11005)
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Attendance_Success(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("excel content"),
		filename: "asistencia_2758_2025-02-01_2025-02-28.xlsx",
	}
	h := NewExportHandler(mock)
	r := newRouter(true)
	r.GET("/export/attendance", h.ExportAttendance)

	w := doJSON(r, "GET", "/export/attendance?cohort_id="+testCohortID+"&from=2025-02-01&to=2025-02-28", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 不正确: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "asistencia_2758") {
		t.Errorf("Content-Disposition 不正确: %s", cd)
	}
	if w.Body.String() != "excel content" {
		t.Errorf("文件内容不正确: %q", w.Body.String())
	}
}

func TestExportHandler_Attendance_MissingParams(t *testing.T) {
	h := NewExportHandler(&mockExportService{})
	r := newRouter(true)
	r.GET("/export/attendance", h.ExportAttendance)

	w := doJSON(r, "GET", "/export/attendance?from=2025-02-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusBadRequest, 25000)
}

func TestExportHandler_Attendance_NoSessions(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoSessions})
	r := newRouter(true)
	r.GET("/export/attendance", h.ExportAttendance)

	w := doJSON(r, "GET", "/export/attendance?cohort_id="+testCohortID+"&from=2025-02-01&to=2025-02-28", nil)
	assertStatusCode(t, w, http.StatusNotFound, 25001)
}

func TestExportHandler_Calendar(t *testing.T) {
	mock := &mockExportService{ics: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), filename: "horario_2025-1_2758.ics"}
	h := NewExportHandler(mock)
	r := newRouter(true)
	r.GET("/export/calendar", h.ExportCalendar)

	w := doJSON(r, "GET", "/export/calendar?trimester_id="+testTrimester+"&cohort_id="+testCohortID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type 不正确: %s", ct)
	}

	mock.err = service.ErrCalendarOwnerRequired
	w = doJSON(r, "GET", "/export/calendar?trimester_id="+testTrimester, nil)
	assertStatusCode(t, w, http.StatusBadRequest, 25002)
}

// ═══════════════════════════════════════════════════════════
// SystemConfigHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSystemConfigHandler_Update(t *testing.T) {
	mock := &mockConfigService{result: &dto.SystemConfigResponse{DefaultToleranceMinutes: 15}}
	h := NewSystemConfigHandler(mock)
	r := newRouter(true)
	r.PUT("/system-config", h.UpdateConfig)

	w := doJSON(r, "PUT", "/system-config", map[string]int{"default_tolerance_minutes": 15})
	assertStatusCode(t, w, http.StatusOK, 0)
	if mock.callerID != testUserID {
		t.Errorf("操作人应取自上下文, got %q", mock.callerID)
	}

	mock.err = service.ErrInvalidSystemConfig
	w = doJSON(r, "PUT", "/system-config", map[string]int{"early_arrival_margin_minutes": 30})
	assertStatusCode(t, w, http.StatusBadRequest, 17001)

	mock.err = service.ErrEmptyConfigUpdate
	w = doJSON(r, "PUT", "/system-config", map[string]int{})
	assertStatusCode(t, w, http.StatusBadRequest, 17002)
}

func TestSystemConfigHandler_Update_FieldErrors(t *testing.T) {
	mock := &mockConfigService{result: &dto.SystemConfigResponse{}}
	h := NewSystemConfigHandler(mock)
	r := newRouter(true)
	r.PUT("/system-config", h.UpdateConfig)

	fieldsOf := func(w *httptest.ResponseRecorder) map[string]interface{} {
		t.Helper()
		data, _ := parseResponse(w).Data.(map[string]interface{})
		fields, _ := data["fields"].(map[string]interface{})
		return fields
	}

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"容忍为负", map[string]int{"default_tolerance_minutes": -1}, "default_tolerance_minutes"},
		{"余量超上限", map[string]int{"early_arrival_margin_minutes": 300}, "early_arrival_margin_minutes"},
		{"布尔类型错误", map[string]string{"excused_counts_as_attended": "si"}, "excused_counts_as_attended"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "PUT", "/system-config", tt.body)
			assertStatusCode(t, w, http.StatusBadRequest, 17001)
			fields := fieldsOf(w)
			if len(fields) != 1 || fields[tt.field] == nil {
				t.Errorf("应只指出 %s，实际 %v", tt.field, fields)
			}
		})
	}

	// 服务层越界同样按字段返回
	mock.err = &service.ConfigFieldError{Field: service.ConfigFieldEarlyArrival, Value: 241}
	w := doJSON(r, "PUT", "/system-config", map[string]int{"early_arrival_margin_minutes": 200})
	assertStatusCode(t, w, http.StatusBadRequest, 17001)
	if fields := fieldsOf(w); fields[service.ConfigFieldEarlyArrival] == nil {
		t.Errorf("应指出 early_arrival_margin_minutes，实际 %v", fields)
	}

	// 非字段级错误（JSON 语法）仍为通用参数错误
	req := httptest.NewRequest("PUT", "/system-config", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assertStatusCode(t, w, http.StatusBadRequest, 10001)
}

func TestSystemConfigHandler_Get(t *testing.T) {
	h := NewSystemConfigHandler(&mockConfigService{result: &dto.SystemConfigResponse{EarlyArrivalMarginMinutes: 30}})
	r := newRouter(true)
	r.GET("/system-config", h.GetConfig)

	w := doJSON(r, "GET", "/system-config", nil)
	assertStatusCode(t, w, http.StatusOK, 0)
	if !strings.Contains(w.Body.String(), `"early_arrival_margin_minutes":30`) {
		t.Errorf("响应不正确: %s", w.Body.String())
	}
}
