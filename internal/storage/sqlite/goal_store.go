package sqlite

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
		now := time.Now().UTC().Format(timeLayout)
		goal.CreatedAt, goal.UpdatedAt = time.Now().UTC(), time.Now().UTC()
		metaJSON, err := marshalMetadata(goal.Metadata)
		if err != nil {
			return err
		}
		_, err = conn.ExecContext(ctx, `
			INSERT INTO goals (id, title, description, status, priority, deadline, metadata, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			goal.ID, goal.Title, goal.Description, string(goal.Status), string(goal.Priority),
			nullTime(goal.Deadline), metaJSON, now, now)
		if err != nil {
			return fmt.Errorf("sqlite: insert goal: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		return insertMilestones(ctx, conn, goal.ID, goal.Milestones)
	})
}

func insertMilestones(ctx context.Context, conn execer, goalID string, milestones []types.Milestone) error {
	for i, ms := range milestones {
		now := time.Now().UTC().Format(timeLayout)
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO milestones (goal_id, ordinal, title, status, created_at) VALUES (?,?,?,?,?)
			ON CONFLICT(goal_id, ordinal) DO UPDATE SET title=excluded.title, status=excluded.status`,
			goalID, i, ms.Title, string(ms.Status), now); err != nil {
			return fmt.Errorf("sqlite: insert milestone: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
	}
	return nil
}

func (g *goalStore) Get(ctx context.Context, id string) (*types.Goal, error) {
	conn := g.db.connFor(ctx)
	row := conn.QueryRowContext(ctx, `
		SELECT id, title, description, status, priority, deadline, metadata, created_at, updated_at, completed_at
		FROM goals WHERE id = ?`, id)
	goal, err := scanGoal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, memcoreerr.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get goal: %w", err)
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
			UPDATE goals SET title=?, description=?, status=?, priority=?, deadline=?, metadata=?, updated_at=?, completed_at=?
			WHERE id=?`,
			goal.Title, goal.Description, string(goal.Status), string(goal.Priority),
			nullTime(goal.Deadline), metaJSON, goal.UpdatedAt.Format(timeLayout), nullTime(goal.CompletedAt), goal.ID)
		if err != nil {
			return fmt.Errorf("sqlite: update goal: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		if err := requireRowsAffected(res); err != nil {
			return err
		}
		return insertMilestones(ctx, conn, goal.ID, goal.Milestones)
	})
}

func (g *goalStore) Delete(ctx context.Context, id string) error {
	return g.db.WithTx(ctx, func(ctx context.Context) error {
		conn := g.db.connFor(ctx)
		if _, err := conn.ExecContext(ctx, `DELETE FROM milestones WHERE goal_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: delete milestones: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		res, err := conn.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: delete goal: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		return requireRowsAffected(res)
	})
}

func (g *goalStore) List(ctx context.Context, status types.GoalStatus) ([]types.Goal, error) {
	conn := g.db.connFor(ctx)
	query := `SELECT id, title, description, status, priority, deadline, metadata, created_at, updated_at, completed_at FROM goals`
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = conn.QueryContext(ctx, query+" WHERE status = ?", string(status))
	} else {
		rows, err = conn.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: list goals: %w", err)
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
	var description, metaJSON, deadline, completedAt sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&goal.ID, &goal.Title, &description, &status, &priority,
		&deadline, &metaJSON, &createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}
	goal.Description = description.String
	goal.Status = types.GoalStatus(status)
	goal.Priority = types.GoalPriority(priority)
	if deadline.Valid {
		if t, err := time.Parse(timeLayout, deadline.String); err == nil {
			goal.Deadline = &t
		}
	}
	if completedAt.Valid {
		if t, err := time.Parse(timeLayout, completedAt.String); err == nil {
			goal.CompletedAt = &t
		}
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		goal.CreatedAt = t
	}
	if t, err := time.Parse(timeLayout, updatedAt); err == nil {
		goal.UpdatedAt = t
	}
	return &goal, nil
}

func milestonesOf(ctx context.Context, conn execer, goalID string) ([]types.Milestone, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT ordinal, title, status, created_at FROM milestones WHERE goal_id = ? ORDER BY ordinal`, goalID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: milestones of: %w", err)
	}
	defer rows.Close()
	var out []types.Milestone
	for rows.Next() {
		var ms types.Milestone
		var status, createdAt string
		if err := rows.Scan(&ms.Order, &ms.Title, &status, &createdAt); err != nil {
			return nil, err
		}
		ms.Status = types.MilestoneStatus(status)
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			ms.CreatedAt = t
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}
