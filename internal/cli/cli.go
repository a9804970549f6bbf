package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/gestorventas/deposito/internal/app"
	"github.com/gestorventas/deposito/internal/migration"
	"github.com/gestorventas/deposito/internal/seeder"
	"github.com/gestorventas/deposito/internal/service/transfer"
)

// NewRootCommand builds the root deposito CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "deposito",
		Short:         "Sales back office: order ledger and catalog tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newPurgeCmd())

	return root
}

// Execute runs the deposito CLI until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP and gRPC services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.HTTP)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				version, err := mig.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed global parameters, sellers and a sample catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := seed.All(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seed data applied")
				return nil
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the ledger auditor worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <categories|products|clients> <file>",
		Short: "Replace a dataset from a semicolon-delimited file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := transfer.ParseKind(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			var svc *transfer.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				count, err := svc.Import(ctx, kind, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s imported\n", count, kind)
				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <categories|products|clients|orders> [file]",
		Short: "Write a dataset as a semicolon-delimited file (stdout by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := transfer.ParseKind(args[0])
			if err != nil {
				return err
			}

			var path string
			if len(args) == 2 {
				path = args[1]
			}

			var svc *transfer.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				return writeExport(cmd.OutOrStdout(), path, func(w io.Writer) error {
					return svc.Export(ctx, kind, w)
				})
			})
		},
	}
}

// writeExport sends write's output to stdout, or to path when set. A file is
// written next to its destination and renamed into place only once complete,
// so a failed export never leaves a truncated file behind.
func writeExport(stdout io.Writer, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move export file into place: %w", err)
	}
	return nil
}

func newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every order, product, category and client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("purge deletes all business data; pass --yes to confirm")
			}
			var svc *transfer.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := svc.Purge(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all business data deleted")
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm the purge")
	return cmd
}

func runUntilDone(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
