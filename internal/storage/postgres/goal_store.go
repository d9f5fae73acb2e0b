package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

type goalStore struct{ db *DB }

var _ storage.GoalStore = (*goalStore)(nil)

func (g *goalStore) Insert(ctx context.Context, goal *types.Goal) error {
	return g.db.WithTx(ctx, func(ctx context.Context) error {
		conn := g.db.connFor(ctx)
		now := time.Now().UTC()
		goal.CreatedAt, goal.UpdatedAt = now, now
		metaJSON, err := marshalMetadata(goal.Metadata)
		if err != nil {
			return err
		}
		_, err = conn.ExecContext(ctx, `
			INSERT INTO goals (id, title, description, status, priority, deadline, metadata, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			goal.ID, goal.Title, goal.Description, string(goal.Status), string(goal.Priority),
			nullTime(goal.Deadline), metaJSON, now, now)
		if err != nil {
			return fmt.Errorf("postgres: insert goal: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		return insertMilestones(ctx, conn, goal.ID, goal.Milestones)
	})
}

func insertMilestones(ctx context.Context, conn execer, goalID string, milestones []types.Milestone) error {
	for i, ms := range milestones {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO milestones (goal_id, ordinal, title, status, created_at) VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT(goal_id, ordinal) DO UPDATE SET title=excluded.title, status=excluded.status`,
			goalID, i, ms.Title, string(ms.Status), time.Now().UTC()); err != nil {
			return fmt.Errorf("postgres: insert milestone: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
	}
	return nil
}

func (g *goalStore) Get(ctx context.Context, id string) (*types.Goal, error) {
	conn := g.db.connFor(ctx)
	row := conn.QueryRowContext(ctx, `
		SELECT id, title, description, status, priority, deadline, metadata, created_at, updated_at, completed_at
		FROM goals WHERE id = $1`, id)
	goal, err := scanGoal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, memcoreerr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get goal: %w", err)
	}
	goal.Milestones, err = milestonesOf(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (g *goalStore) Update(ctx context.Context, goal *types.Goal) error {
	return g.db.WithTx(ctx, func(ctx context.Context) error {
		conn := g.db.connFor(ctx)
		goal.UpdatedAt = time.Now().UTC()
		metaJSON, err := marshalMetadata(goal.Metadata)
		if err != nil {
			return err
		}
		res, err := conn.ExecContext(ctx, `
			UPDATE goals SET title=$1, description=$2, status=$3, priority=$4, deadline=$5, metadata=$6, updated_at=$7, completed_at=$8
			WHERE id=$9`,
			goal.Title, goal.Description, string(goal.Status), string(goal.Priority),
			nullTime(goal.Deadline), metaJSON, goal.UpdatedAt, nullTime(goal.CompletedAt), goal.ID)
		if err != nil {
			return fmt.Errorf("postgres: update goal: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		if err := requireRowsAffected(res); err != nil {
			return err
		}
		return insertMilestones(ctx, conn, goal.ID, goal.Milestones)
	})
}

func (g *goalStore) Delete(ctx context.Context, id string) error {
	// milestones cascade via ON DELETE CASCADE
	res, err := g.db.connFor(ctx).ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete goal: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (g *goalStore) List(ctx context.Context, status types.GoalStatus) ([]types.Goal, error) {
	conn := g.db.connFor(ctx)
	query := `SELECT id, title, description, status, priority, deadline, metadata, created_at, updated_at, completed_at FROM goals`
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = conn.QueryContext(ctx, query+" WHERE status = $1", string(status))
	} else {
		rows, err = conn.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list goals: %w", err)
	}
	defer rows.Close()

	var out []types.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goal.Milestones, err = milestonesOf(ctx, conn, goal.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *goal)
	}
	return out, rows.Err()
}

func scanGoal(row rowScanner) (*types.Goal, error) {
	var goal types.Goal
	var status, priority string
	var description sql.NullString
	var metaJSON sql.NullString
	var deadline, completedAt sql.NullTime
	if err := row.Scan(&goal.ID, &goal.Title, &description, &status, &priority,
		&deadline, &metaJSON, &goal.CreatedAt, &goal.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}
	goal.Description = description.String
	goal.Status = types.GoalStatus(status)
	goal.Priority = types.GoalPriority(priority)
	if deadline.Valid {
		t := deadline.Time
		goal.Deadline = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		goal.CompletedAt = &t
	}
	return &goal, nil
}

func milestonesOf(ctx context.Context, conn execer, goalID string) ([]types.Milestone, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT ordinal, title, status, created_at FROM milestones WHERE goal_id = $1 ORDER BY ordinal`, goalID)
	if err != nil {
		return nil, fmt.Errorf("postgres: milestones of: %w", err)
	}
	defer rows.Close()
	var out []types.Milestone
	for rows.Next() {
		var ms types.Milestone
		var status string
		if err := rows.Scan(&ms.Order, &ms.Title, &status, &ms.CreatedAt); err != nil {
			return nil, err
		}
		ms.Status = types.MilestoneStatus(status)
		out = append(out, ms)
	}
	return out, rows.Err()
}
