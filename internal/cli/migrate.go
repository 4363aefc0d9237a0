package cli

import (
	"github.com/spf13/cobra"

	"ficha-attendance/backend/pkg/database"
)

// NewMigrateCommand 数据库迁移
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行或回滚数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return database.RunMigrations(a.sqlDB, a.logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚最近的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return database.RollbackMigrations(a.sqlDB, steps, a.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚步数")
	cmd.AddCommand(down)

	return cmd
}
