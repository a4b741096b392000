package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/migrations"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

var gooseRun = goose.Run // mockable

var migrateCommands = map[string]bool{
	"up": true, "up-by-one": true, "up-to": true,
	"down": true, "down-to": true, "redo": true, "reset": true,
	"status": true, "version": true,
}

var errCoverageIncomplete = errors.New("subject coverage incomplete")

func newMigrateCmd(app *adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|up-by-one|up-to|down|down-to|redo|reset|status|version> [version]",
		Short: "Run the embedded schema migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := args[0]
			if !migrateCommands[command] {
				return fmt.Errorf("unsupported migrate command %q", command)
			}
			if err := app.connect(); err != nil {
				return err
			}
			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			app.logger.Info("running migrations", zap.String("command", command), zap.Strings("args", args[1:]))
			return gooseRun(command, app.db.DB, ".", args[1:]...)
		},
	}
}

func newWorkloadCmd(app *adminApp) *cobra.Command {
	workload := &cobra.Command{
		Use:   "workload",
		Short: "Teacher workload maintenance",
	}

	var schoolID, yearID string
	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute current periods for every active teacher of a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.connect(); err != nil {
				return err
			}
			year, err := app.resolveYear(ctx, schoolID, yearID)
			if err != nil {
				return err
			}
			updated, err := app.workload.RecomputeSchool(ctx, schoolID, year)
			if err != nil {
				return fmt.Errorf("recompute workloads (%d updated): %w", updated, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d teachers for academic year %s\n", updated, year)
			return nil
		},
	}
	recompute.Flags().StringVar(&schoolID, "school", "", "school ID")
	recompute.Flags().StringVar(&yearID, "year", "", "academic year ID (defaults to the current year)")
	_ = recompute.MarkFlagRequired("school")

	workload.AddCommand(recompute)
	return workload
}

func newCoverageCmd(app *adminApp) *cobra.Command {
	coverage := &cobra.Command{
		Use:   "coverage",
		Short: "Subject teacher coverage checks",
	}

	var schoolID, unitID, yearID string
	check := &cobra.Command{
		Use:   "check",
		Short: "Report subjects without a resolvable teacher for an academic unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.connect(); err != nil {
				return err
			}
			year, err := app.resolveYear(ctx, schoolID, yearID)
			if err != nil {
				return err
			}
			result, err := app.coverage.ValidateAllSubjectsHaveTeachers(ctx, schoolID, unitID, year)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.IsValid {
				fmt.Fprintln(out, "all subjects have a teacher")
				return nil
			}
			for _, subject := range result.MissingSubjects {
				fmt.Fprintf(out, "missing: %s %s\n", subject.Code, subject.Name)
			}
			return fmt.Errorf("%w: %d subjects without a teacher", errCoverageIncomplete, len(result.MissingSubjects))
		},
	}
	check.Flags().StringVar(&schoolID, "school", "", "school ID")
	check.Flags().StringVar(&unitID, "unit", "", "academic unit ID")
	check.Flags().StringVar(&yearID, "year", "", "academic year ID (defaults to the current year)")
	_ = check.MarkFlagRequired("school")
	_ = check.MarkFlagRequired("unit")

	coverage.AddCommand(check)
	return coverage
}

func newTokenCmd(app *adminApp) *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Development access tokens",
	}

	var (
		claims models.JWTClaims
		role   string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Env == config.EnvProduction {
				return errors.New("token issuance is disabled in production")
			}
			claims.Role = models.UserRole(strings.ToUpper(role))
			signed, expiresAt, err := app.tokens.IssueToken(claims, ttl)
			if err != nil {
				return err
			}
			app.logger.Info("token issued",
				zap.String("user_id", claims.UserID),
				zap.String("school_id", claims.SchoolID),
				zap.Time("expires_at", expiresAt))
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	issue.Flags().StringVar(&claims.UserID, "user", "", "user ID")
	issue.Flags().StringVar(&claims.SchoolID, "school", "", "school ID")
	issue.Flags().StringVar(&claims.Email, "email", "", "email claim")
	issue.Flags().StringVar(&claims.FullName, "name", "", "full name claim")
	issue.Flags().StringVar(&role, "role", string(models.RoleAdmin), "role claim")
	issue.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("user")
	_ = issue.MarkFlagRequired("school")

	token.AddCommand(issue)
	return token
}
