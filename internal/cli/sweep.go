package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// 本地时刻格式，按机构时区解释
var localLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04"}

// NewSweepCommand 手动执行一次默认缺勤补录
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "为已开始的当天课次补齐默认缺勤",
		Long: `为 --at 所在日期内已开始的有效课次，给在册但无记录的学员补一条 AUTOMATIC ABSENT。
重复执行不会产生重复记录。

示例:
  attendctl sweep
  attendctl sweep --at "2025-02-03 12:00"
  attendctl sweep --at 2025-02-03T17:00:00Z --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			loc, err := time.LoadLocation(a.cfg.Attendance.Timezone)
			if err != nil {
				return err
			}
			now, err := parseAt(at, loc, time.Now())
			if err != nil {
				return err
			}

			result, sweepErr := a.svc.Attendance.Sweep(cmd.Context(), now)
			if result != nil {
				text := fmt.Sprintf("%s: 检查 %d 个课次，补录 %d 个，新增缺勤 %d 条，失败 %d 个",
					result.Date, result.SessionsChecked, result.SessionsSwept, result.DefaultsCreated, result.Failed)
				if err := printResult(cmd.OutOrStdout(), rootOpts.Format, result, text); err != nil {
					return err
				}
			}
			return sweepErr
		},
	}

	cmd.Flags().StringVar(&at, "at", "", `补录时刻：RFC3339 或机构时区的 "YYYY-MM-DD HH:MM"（默认当前时间）`)
	return cmd
}

// parseAt 解析 --at；空串取 fallback
func parseAt(s string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析 --at %q，应为 RFC3339 或 YYYY-MM-DD HH:MM", s)
}
