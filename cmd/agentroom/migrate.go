package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/agentroom/internal/migration"
)

// =============================================================================
// 🗄️ 数据库迁移命令
// =============================================================================

type migrateOptions struct {
	dbType string
	dbURL  string
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	mo := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema used by store.type=database",
		Long: `Apply or roll back the embedded SQL migrations.

The target database comes from the database section of the config file
unless both --db-type and --db-url are given.`,
		Example: `  agentroom migrate up
  agentroom migrate up --config /etc/agentroom/config.yaml
  agentroom migrate status --db-type sqlite --db-url "file:agentroom.db?mode=rwc"
  agentroom migrate goto 1
  agentroom migrate force 0`,
	}
	cmd.PersistentFlags().StringVar(&mo.dbType, "db-type", "", "Database type: postgres, mysql, sqlite (default: from config)")
	cmd.PersistentFlags().StringVar(&mo.dbURL, "db-url", "", "Database connection URL (default: from config)")

	var all bool
	down := migrateRun(opts, mo, "down", "Roll back the last migration (or all with --all)", cobra.NoArgs,
		func(ctx context.Context, c *migration.CLI, _ []string) error {
			if all {
				return c.RunDownAll(ctx)
			}
			return c.RunDown(ctx)
		})
	down.Flags().BoolVar(&all, "all", false, "Roll back every migration")

	cmd.AddCommand(
		migrateRun(opts, mo, "up", "Apply all pending migrations", cobra.NoArgs,
			func(ctx context.Context, c *migration.CLI, _ []string) error { return c.RunUp(ctx) }),
		down,
		migrateRun(opts, mo, "steps N", "Apply N migrations, or roll back when N is negative", cobra.ExactArgs(1),
			func(ctx context.Context, c *migration.CLI, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q: %w", args[0], err)
				}
				return c.RunSteps(ctx, n)
			}),
		migrateRun(opts, mo, "goto VERSION", "Migrate to a specific version", cobra.ExactArgs(1),
			func(ctx context.Context, c *migration.CLI, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return c.RunGoto(ctx, uint(v))
			}),
		migrateRun(opts, mo, "force VERSION", "Force set migration version (use with caution)", cobra.ExactArgs(1),
			func(ctx context.Context, c *migration.CLI, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return c.RunForce(ctx, v)
			}),
		migrateRun(opts, mo, "version", "Show current migration version", cobra.NoArgs,
			func(ctx context.Context, c *migration.CLI, _ []string) error { return c.RunVersion(ctx) }),
		migrateRun(opts, mo, "status", "Show migration status", cobra.NoArgs,
			func(ctx context.Context, c *migration.CLI, _ []string) error { return c.RunStatus(ctx) }),
		migrateRun(opts, mo, "info", "Show migration details", cobra.NoArgs,
			func(ctx context.Context, c *migration.CLI, _ []string) error { return c.RunInfo(ctx) }),
		migrateRun(opts, mo, "reset", "Roll back all migrations", cobra.NoArgs,
			func(ctx context.Context, c *migration.CLI, _ []string) error { return c.RunDownAll(ctx) }),
	)
	return cmd
}

// migrateRun 构造一个子命令：创建 migrator，执行 fn，最后关闭
func migrateRun(opts *globalOptions, mo *migrateOptions, use, short string, args cobra.PositionalArgs,
	fn func(ctx context.Context, c *migration.CLI, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			m, err := createMigrator(opts, mo)
			if err != nil {
				return err
			}
			defer m.Close()

			c := migration.NewCLI(m)
			c.SetOutput(cmd.OutOrStdout())
			return fn(cmd.Context(), c, a)
		},
	}
}

// createMigrator 优先使用 --db-type/--db-url，否则读取配置文件
func createMigrator(opts *globalOptions, mo *migrateOptions) (*migration.DefaultMigrator, error) {
	logger := zap.NewNop()

	if mo.dbType != "" && mo.dbURL != "" {
		return migration.NewMigratorFromURL(mo.dbType, mo.dbURL, logger)
	}

	_, cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger = initLogger(cfg.Log)

	if mo.dbType != "" {
		cfg.Database.Driver = mo.dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database, logger)
}
