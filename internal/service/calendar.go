package service

import (
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/timewindow"
)

// ErrCalendarOwnerRequired cohort_id 与 instructor_id 必须且只能给一个
var ErrCalendarOwnerRequired = errors.New("cohort_id 与 instructor_id 必须且只能提供一个")

const icsUntilLayout = "20060102T150405Z"

// calendarBuilder 将周时段渲染为 RRULE:FREQ=WEEKLY 的 VEVENT，重复至学季结束
type calendarBuilder struct {
	norm *clock.Normalizer
	now  func() time.Time
}

func newCalendarBuilder(norm *clock.Normalizer, clk clock.Clock) *calendarBuilder {
	return &calendarBuilder{norm: norm, now: clk.Now}
}

// Build 生成 ICS 文本
func (b *calendarBuilder) Build(name string, trimester *model.Trimester, slots []model.ScheduleSlot) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ficha-attendance//horario//ES")
	cal.SetXWRCalName(fmt.Sprintf("%s · %s", name, trimester.Name))
	cal.SetXWRTimezone(b.norm.Location().String())

	stamp := b.now()
	start := clock.TruncateDate(trimester.StartDate)
	end := clock.TruncateDate(trimester.EndDate)
	until := b.norm.Combine(end, timewindow.MustWallTime("23:59")).UTC()

	for i := range slots {
		slot := &slots[i]
		w, err := slot.Window()
		if err != nil {
			return nil, fmt.Errorf("周时段 %s 时间无效: %w", slot.SlotID, err)
		}

		first := firstWeekday(start, slot.DayOfWeek)
		if first.After(end) {
			continue
		}

		event := cal.AddEvent(slot.SlotID + "@ficha-attendance")
		event.SetDtStampTime(stamp)
		event.SetStartAt(b.norm.Combine(first, w.Start))
		event.SetEndAt(b.norm.Combine(first, w.End))
		event.SetSummary(slot.Competence)
		if slot.ClassroomID != nil {
			event.SetLocation(*slot.ClassroomID)
		}
		event.SetDescription(fmt.Sprintf("Tolerancia: %d min", slot.ToleranceMinutes))
		event.AddRrule("FREQ=WEEKLY;UNTIL=" + until.Format(icsUntilLayout))
	}

	return []byte(cal.Serialize()), nil
}

// firstWeekday from 当天或之后第一个 ISO 星期为 dow 的日期
func firstWeekday(from time.Time, dow int) time.Time {
	offset := (dow - timewindow.ISOWeekday(from) + 7) % 7
	return from.AddDate(0, 0, offset)
}
