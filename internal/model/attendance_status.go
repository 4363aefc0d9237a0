package model

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnknownStatus 无法识别的考勤状态
var ErrUnknownStatus = errors.New("无法识别的考勤状态")

// AttendanceStatus 考勤状态（规范取值）
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusLate    AttendanceStatus = "LATE"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusExcused AttendanceStatus = "EXCUSED"
)

// AttendanceSource 记录来源
type AttendanceSource string

const (
	SourceAutomatic AttendanceSource = "AUTOMATIC"
	SourceManual    AttendanceSource = "MANUAL"
)

// Valid 是否为规范取值
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

// Rank 自动写入的单调顺序：ABSENT < LATE < PRESENT
// EXCUSED 只能由人工设置，不参与自动比较
func (s AttendanceStatus) Rank() int {
	switch s {
	case StatusAbsent:
		return 1
	case StatusLate:
		return 2
	case StatusPresent:
		return 3
	}
	return 0
}

// SpanishLabel 面向前端的西语标签
func (s AttendanceStatus) SpanishLabel() string {
	switch s {
	case StatusPresent:
		return "Presente"
	case StatusLate:
		return "Tarde"
	case StatusAbsent:
		return "Ausente"
	case StatusExcused:
		return "Excusado"
	}
	return string(s)
}

var statusAliases = map[string]AttendanceStatus{
	"present":      StatusPresent,
	"presente":     StatusPresent,
	"asistio":      StatusPresent,
	"late":         StatusLate,
	"tarde":        StatusLate,
	"retardo":      StatusLate,
	"tardanza":     StatusLate,
	"absent":       StatusAbsent,
	"ausente":      StatusAbsent,
	"inasistencia": StatusAbsent,
	"falla":        StatusAbsent,
	"excused":      StatusExcused,
	"excusado":     StatusExcused,
	"excusa":       StatusExcused,
	"justificado":  StatusExcused,
}

// foldAccents 去除变音符号：Asistió → Asistio
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ParseAttendanceStatus 解析边界输入的状态，接受英文/西语别名，大小写与重音不敏感
func ParseAttendanceStatus(raw string) (AttendanceStatus, error) {
	key := strings.ToLower(strings.TrimSpace(foldAccents(raw)))
	if st, ok := statusAliases[key]; ok {
		return st, nil
	}
	return "", ErrUnknownStatus
}
