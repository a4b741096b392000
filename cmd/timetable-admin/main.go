// Command timetable-admin runs operator tasks against the timetable database:
// schema migrations, workload recomputation, subject coverage checks and
// development tokens.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

type yearFinder interface {
	GetCurrent(ctx context.Context, schoolID string) (*models.AcademicYear, error)
}

type schoolRecomputer interface {
	RecomputeSchool(ctx context.Context, schoolID, yearID string) (int, error)
}

type coverageChecker interface {
	ValidateAllSubjectsHaveTeachers(ctx context.Context, schoolID, unitID, yearID string) (*models.SubjectCoverage, error)
}

type tokenIssuer interface {
	IssueToken(claims models.JWTClaims, ttl time.Duration) (string, time.Time, error)
}

// adminApp holds lazily built dependencies shared by the subcommands.
type adminApp struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB

	years    yearFinder
	workload schoolRecomputer
	coverage coverageChecker
	tokens   tokenIssuer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app := &adminApp{}
	err := newRootCmd(app).ExecuteContext(ctx)
	app.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:          "timetable-admin",
		Short:        "Operator tooling for the timetable service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}
	root.AddCommand(
		newMigrateCmd(app),
		newWorkloadCmd(app),
		newCoverageCmd(app),
		newTokenCmd(app),
	)
	return root
}

func (a *adminApp) init() error {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		logr, err := logger.New(a.cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = logr
	}
	if a.tokens == nil {
		a.tokens = service.NewTokenService(a.cfg.JWT)
	}
	return nil
}

// connect opens the database and builds the services that need it. Anything
// already set is kept.
func (a *adminApp) connect() error {
	if a.db == nil {
		db, err := database.NewPostgres(a.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.db = db
	}

	teachers := repository.NewTeacherRepository(a.db)
	subjectTeachers := repository.NewSubjectTeacherRepository(a.db)
	if a.years == nil {
		a.years = repository.NewAcademicYearRepository(a.db)
	}
	if a.workload == nil {
		tx := database.NewTransactor(a.db, a.cfg.Scheduling.SerializableRetries, a.logger)
		a.workload = service.NewWorkloadTracker(tx, teachers, subjectTeachers, service.NewMetricsService(), a.logger)
	}
	if a.coverage == nil {
		a.coverage = service.NewSubjectTeacherResolver(
			repository.NewAcademicUnitRepository(a.db),
			repository.NewSubjectRepository(a.db),
			subjectTeachers,
		)
	}
	return nil
}

// resolveYear falls back to the school's current academic year.
func (a *adminApp) resolveYear(ctx context.Context, schoolID, yearID string) (string, error) {
	if yearID != "" {
		return yearID, nil
	}
	year, err := a.years.GetCurrent(ctx, schoolID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("school %s has no current academic year, pass --year", schoolID)
	}
	if err != nil {
		return "", fmt.Errorf("lookup current academic year: %w", err)
	}
	return year.ID, nil
}

func (a *adminApp) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
