package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = "id, user_id, vehicle_id, course_id, replay_version, total_ticks, created_at"

func scanRecord(row interface{ Scan(dest ...any) error }) (*Record, error) {
	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.VehicleID, &rec.CourseID,
		&rec.ReplayVersion, &rec.TotalTicks, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	query :=
		`SELECT ` + recordColumns + ` FROM time_trial_records
		 WHERE id = $1
		 `

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID int32, vehicleID, courseID uuid.UUID) (*Record, error) {
	query :=
		`SELECT ` + recordColumns + ` FROM time_trial_records
		 WHERE user_id = $1 AND vehicle_id = $2 AND course_id = $3
		 `

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, vehicleID, courseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) FilterList(ctx context.Context, filter Filter) ([]*Record, error) {
	var conditions []string
	var args []any

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.VehicleID != nil {
		args = append(args, *filter.VehicleID)
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM time_trial_records`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY total_ticks ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error performing sql request: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpsertIfNotSlower(ctx context.Context, candidate *Record) (UpsertResult, error) {
	// The ticks comparison runs inside the statement, so two concurrent
	// submissions to the same slot serialize on the row and the slower
	// one always loses, whichever commits second. A tie goes to the
	// newer submission. No row back means the stored record is strictly
	// faster.
	query :=
		`INSERT INTO time_trial_records (id, user_id, vehicle_id, course_id, replay_version, total_ticks)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, vehicle_id, course_id) DO UPDATE
		 SET replay_version = EXCLUDED.replay_version,
		     total_ticks = EXCLUDED.total_ticks,
		     created_at = now()
		 WHERE time_trial_records.total_ticks >= EXCLUDED.total_ticks
		 RETURNING id, (xmax <> 0)
		 `

	var id uuid.UUID
	var updated bool
	err := r.db.QueryRowContext(ctx, query,
		uuid.New(), candidate.UserID, candidate.VehicleID, candidate.CourseID,
		candidate.ReplayVersion, candidate.TotalTicks).Scan(&id, &updated)

	if errors.Is(err, sql.ErrNoRows) {
		// Candidate lost. Look up the standing record so the caller can
		// report whose time held the slot.
		standing, err := r.Find(ctx, candidate.UserID, candidate.VehicleID, candidate.CourseID)
		if err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{ID: standing.ID, Improved: false}, nil
	}
	if err != nil {
		return UpsertResult{}, fmt.Errorf("error performing sql request: %w", err)
	}

	return UpsertResult{ID: id, Improved: true, Inserted: !updated}, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query :=
		`DELETE FROM time_trial_records WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}
