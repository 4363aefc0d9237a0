package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSessions   = errors.New("所选区间内没有课次")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportAttendance 导出 ficha 在日期区间内的考勤表为 Excel
	ExportAttendance(ctx context.Context, req *dto.ExportAttendanceRequest) (*bytes.Buffer, string, error)
	// ExportCalendar 导出 ficha 或讲师的周课表为 ICS
	ExportCalendar(ctx context.Context, req *dto.ExportCalendarRequest) ([]byte, string, error)
}

type exportService struct {
	repo         *repository.Repository
	calendar     *calendarBuilder
	maxRangeDays int
	logger       *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, norm *clock.Normalizer, clk clock.Clock, maxRangeDays int, logger *zap.Logger) ExportService {
	return &exportService{
		repo:         repo,
		calendar:     newCalendarBuilder(norm, clk),
		maxRangeDays: maxRangeDays,
		logger:       logger,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance 导出考勤表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Asistencia"：行 = 学员，列 = 课次（日期 + 时间），末尾为计数与出勤率
//   - Sheet "Resumen"：每个日期一行的汇总
//   - 无记录的在册学员按 Ausente 显示（只读，不补写）

func (s *exportService) ExportAttendance(ctx context.Context, req *dto.ExportAttendanceRequest) (*bytes.Buffer, string, error) {
	from, to, err := parseDateRange(req.From, req.To, s.maxRangeDays)
	if err != nil {
		return nil, "", err
	}
	cohort, err := requireCohort(ctx, s.repo, req.CohortID)
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadSystemConfig(ctx, s.repo)
	if err != nil {
		return nil, "", err
	}

	// 1. 课次与记录
	sessions, err := s.repo.ClassSession.ListActiveByCohortAndRange(ctx, cohort.CohortID, from, to)
	if err != nil {
		s.logger.Error("查询区间课次失败", zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 {
		return nil, "", ErrExportNoSessions
	}
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].SessionID)
	}
	records, err := s.repo.Attendance.ListBySessions(ctx, ids)
	if err != nil {
		s.logger.Error("查询区间考勤失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 学员：在册名单 ∪ 有记录者
	roster, err := s.repo.Cohort.ListLearnerIDs(ctx, cohort.CohortID)
	if err != nil {
		s.logger.Error("查询在册名单失败", zap.Error(err))
		return nil, "", err
	}
	statusIndex := make(map[string]model.AttendanceStatus, len(records)) // "session:learner" → status
	learnerSet := make(map[string]bool, len(roster))
	for _, id := range roster {
		learnerSet[id] = true
	}
	for _, r := range records {
		statusIndex[r.SessionID+":"+r.LearnerID] = r.Status
		learnerSet[r.LearnerID] = true
	}
	learnerIDs := make([]string, 0, len(learnerSet))
	for id := range learnerSet {
		learnerIDs = append(learnerIDs, id)
	}
	profiles, err := s.repo.Profile.ListByIDs(ctx, learnerIDs)
	if err != nil {
		s.logger.Error("查询学员档案失败", zap.Error(err))
		return nil, "", err
	}
	names := make(map[string]string, len(profiles))
	docs := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ProfileID] = p.FullName
		docs[p.ProfileID] = p.DocumentNumber
	}
	sort.Slice(learnerIDs, func(i, j int) bool {
		if names[learnerIDs[i]] != names[learnerIDs[j]] {
			return names[learnerIDs[i]] < names[learnerIDs[j]]
		}
		return learnerIDs[i] < learnerIDs[j]
	})

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Asistencia"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#39A900"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	// 标题行
	sessionCols := len(sessions)
	lastCol := colName(2 + sessionCols + 4)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Ficha %s · %s (%s a %s)", cohort.Code, cohort.ProgramName, formatDate(from), formatDate(to)))
	f.MergeCell(sheetName, "A1", lastCol+"1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "Documento")
	f.SetCellValue(sheetName, cell("B", row), "Aprendiz")
	for i := range sessions {
		sess := &sessions[i]
		f.SetCellValue(sheetName, cell(colName(2+i), row),
			fmt.Sprintf("%s\n%s-%s", formatDate(sess.SessionDate), wallString(sess.StartTime), wallString(sess.EndTime)))
	}
	for i, h := range []string{"Presente", "Tarde", "Ausente", "Excusado", "% Asistencia"} {
		f.SetCellValue(sheetName, cell(colName(2+sessionCols+i), row), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, row), headerStyle)

	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", "B", 32)
	if sessionCols > 0 {
		f.SetColWidth(sheetName, colName(2), colName(1+sessionCols), 14)
	}

	// 数据行
	row = 3
	dateCounters := make(map[string]*StatsCounter)
	for _, learnerID := range learnerIDs {
		var c StatsCounter
		f.SetCellValue(sheetName, cell("A", row), docs[learnerID])
		f.SetCellValue(sheetName, cell("B", row), names[learnerID])
		for i := range sessions {
			st, ok := statusIndex[sessions[i].SessionID+":"+learnerID]
			if !ok {
				st = model.StatusAbsent
			}
			c.Add(st)
			date := formatDate(sessions[i].SessionDate)
			if dateCounters[date] == nil {
				dateCounters[date] = &StatsCounter{}
			}
			dateCounters[date].Add(st)
			f.SetCellValue(sheetName, cell(colName(2+i), row), st.SpanishLabel())
		}
		stats := c.Result(cfg.ExcusedCountsAsAttended)
		for i, v := range []interface{}{stats.Present, stats.Late, stats.Absent, stats.Excused, stats.Percentage} {
			f.SetCellValue(sheetName, cell(colName(2+sessionCols+i), row), v)
		}
		row++
	}

	// 汇总 Sheet
	summary := "Resumen"
	f.NewSheet(summary)
	for i, h := range []string{"Fecha", "Total", "Presente", "Tarde", "Ausente", "Excusado", "% Asistencia"} {
		f.SetCellValue(summary, cell(colName(i), 1), h)
	}
	f.SetCellStyle(summary, "A1", "G1", headerStyle)
	dates := make([]string, 0, len(dateCounters))
	for d := range dateCounters {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for i, d := range dates {
		st := dateCounters[d].Result(cfg.ExcusedCountsAsAttended)
		for j, v := range []interface{}{d, st.Total, st.Present, st.Late, st.Absent, st.Excused, st.Percentage} {
			f.SetCellValue(summary, cell(colName(j), i+2), v)
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("asistencia_%s_%s_%s.xlsx", cohort.Code, formatDate(from), formatDate(to))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出周课表为 ICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, req *dto.ExportCalendarRequest) ([]byte, string, error) {
	if (req.CohortID == "") == (req.InstructorID == "") {
		return nil, "", ErrCalendarOwnerRequired
	}
	trimester, err := requireTrimester(ctx, s.repo, req.TrimesterID)
	if err != nil {
		return nil, "", err
	}

	owner := req.CohortID
	ownerLabel := ""
	if req.CohortID != "" {
		cohort, err := requireCohort(ctx, s.repo, req.CohortID)
		if err != nil {
			return nil, "", err
		}
		ownerLabel = "Ficha " + cohort.Code
	} else {
		owner = req.InstructorID
		p, err := requireProfile(ctx, s.repo, req.InstructorID, model.RoleInstructor, ErrInstructorNotFound)
		if err != nil {
			return nil, "", err
		}
		ownerLabel = p.FullName
	}

	slots, err := s.repo.ScheduleSlot.List(ctx, repository.ScheduleSlotFilter{
		TrimesterID:  trimester.TrimesterID,
		CohortID:     req.CohortID,
		InstructorID: req.InstructorID,
	})
	if err != nil {
		s.logger.Error("查询周时段失败", zap.Error(err))
		return nil, "", err
	}

	body, err := s.calendar.Build(ownerLabel, trimester, slots)
	if err != nil {
		s.logger.Error("生成 ICS 失败", zap.Error(err))
		return nil, "", err
	}
	return body, fmt.Sprintf("horario_%s_%s.ics", trimester.Name, owner), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
