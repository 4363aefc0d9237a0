// Package cli attendctl 运维命令行
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Format     string // text | json
}

// ValidFormats 允许的输出格式
var ValidFormats = []string{"text", "json"}

// NewRootCommand 创建 attendctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "attendctl",
		Short: "ficha 考勤服务运维工具",
		Long:  "ficha 考勤服务运维工具：数据库迁移、缺勤补录、按周时段生成课次。",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("无效的输出格式 %q，可选 %v", opts.Format, ValidFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "输出格式 (text|json)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewGenerateSessionsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
