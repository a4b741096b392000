package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/pkg/database"
)

// conflictScope limits teacher-wide scans to timetables that are still in play.
const conflictScope = `tt.status IN ('DRAFT', 'PUBLISHED')`

// teachingSlot excludes non-teaching slot types from teacher checks.
const teachingSlot = `s.slot_type NOT IN ('BREAK', 'LUNCH', 'ASSEMBLY')`

type base struct {
	db *sqlx.DB
}

func (b base) exec(ctx context.Context) sqlx.ExtContext {
	return database.Executor(ctx, b.db)
}
