package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ficha-attendance/backend/internal/dto"
)

// GenerateOptions generate-sessions 参数
type GenerateOptions struct {
	*RootOptions
	TrimesterID string
	From        string
	To          string
	OperatorID  string
}

// NewGenerateSessionsCommand 按周时段展开课次
func NewGenerateSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate-sessions",
		Short: "把学季内的有效周时段展开为具体课次",
		Long: `在 [from, to]（自动裁剪到学季范围）内，为每个有效周时段的每个匹配星期生成一个课次。
已存在的 (slot, date) 会被跳过，可重复执行。

示例:
  attendctl generate-sessions --trimester <uuid> --from 2025-01-13 --to 2025-04-04`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(opts.OperatorID); err != nil {
				return fmt.Errorf("--by 必须是 UUID: %w", err)
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.svc.ClassSession.GenerateFromSlots(cmd.Context(), &dto.GenerateSessionsRequest{
				TrimesterID: opts.TrimesterID,
				From:        opts.From,
				To:          opts.To,
			}, opts.OperatorID)
			if err != nil {
				return err
			}

			text := fmt.Sprintf("%s ~ %s: 候选 %d，新建 %d，已存在 %d，冲突未生成 %d",
				result.From, result.To, result.Candidates, result.Created, result.Skipped, result.Conflicted)
			for _, gc := range result.Conflicts {
				text += fmt.Sprintf("\n  %s slot=%s 冲突 %d 项", gc.SessionDate, gc.SlotID, len(gc.Conflicts))
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, result, text)
		},
	}

	cmd.Flags().StringVar(&opts.TrimesterID, "trimester", "", "学季 ID（必填）")
	cmd.Flags().StringVar(&opts.From, "from", "", "开始日期 YYYY-MM-DD（必填）")
	cmd.Flags().StringVar(&opts.To, "to", "", "结束日期 YYYY-MM-DD（必填）")
	cmd.Flags().StringVar(&opts.OperatorID, "by", uuid.Nil.String(), "记为创建人的管理员 ID")
	_ = cmd.MarkFlagRequired("trimester")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
