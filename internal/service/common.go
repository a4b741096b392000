package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// txRunner runs fn inside one serializable transaction carried by ctx.
type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// inlineTx runs fn directly; used when no transactor is configured.
type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type unitReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicUnit, error)
}

var dayNames = map[int]string{
	1: "MONDAY",
	2: "TUESDAY",
	3: "WEDNESDAY",
	4: "THURSDAY",
	5: "FRIDAY",
	6: "SATURDAY",
	7: "SUNDAY",
}

func dayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return fmt.Sprintf("DAY %d", day)
}

func requireClaims(claims *models.JWTClaims) error {
	if claims == nil || claims.SchoolID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

// internalErr wraps infrastructure failures, leaving typed errors untouched.
func internalErr(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func loadTeacher(ctx context.Context, repo teacherReader, schoolID, id string) (*models.Teacher, error) {
	teacher, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, internalErr(err, "failed to load teacher")
	}
	if teacher.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return teacher, nil
}

func loadUnit(ctx context.Context, repo unitReader, schoolID, id string) (*models.AcademicUnit, error) {
	unit, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic unit not found")
		}
		return nil, internalErr(err, "failed to load academic unit")
	}
	if unit.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic unit not found")
	}
	return unit, nil
}

func isNotFound(err error) bool {
	return appErrors.Is(err, appErrors.ErrNotFound)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}
