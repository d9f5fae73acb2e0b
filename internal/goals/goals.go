// Package goals implements spec §4.8's goal store: CRUD over goals and
// their ordered milestones, plus auto-linking of newly written progress
// memories to whichever active goals their content is similar enough to.
package goals

import (
	"context"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// Service orchestrates goal/milestone CRUD and progress-memory linking.
type Service struct {
	backend  storage.Backend
	embedder *embedding.Manager
}

// New returns a goals Service over backend and embedder.
func New(backend storage.Backend, embedder *embedding.Manager) *Service {
	return &Service{backend: backend, embedder: embedder}
}

var now = func() time.Time { return time.Now().UTC() }

// CreateInput describes a new goal.
type CreateInput struct {
	Title       string
	Description string
	Priority    types.GoalPriority
	Deadline    *time.Time
	Metadata    map[string]any
}

// Create inserts a new active goal.
func (s *Service) Create(ctx context.Context, input CreateInput) (*types.Goal, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("goals: title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	g := &types.Goal{
		ID:          ids.New(),
		Title:       input.Title,
		Description: input.Description,
		Status:      types.GoalActive,
		Priority:    priority,
		Deadline:    input.Deadline,
		Metadata:    input.Metadata,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	if err := s.backend.Goals().Insert(ctx, g); err != nil {
		return nil, fmt.Errorf("goals: insert: %w", err)
	}
	return g, nil
}

// Get returns a goal by id.
func (s *Service) Get(ctx context.Context, id string) (*types.Goal, error) {
	g, err := s.backend.Goals().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("goals: get %s: %w", id, err)
	}
	return g, nil
}

// List returns goals with the given status, or every goal when status is empty.
func (s *Service) List(ctx context.Context, status types.GoalStatus) ([]types.Goal, error) {
	goals, err := s.backend.Goals().List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("goals: list: %w", err)
	}
	return goals, nil
}

// UpdatePatch is a partial goal update; nil fields are left unchanged.
type UpdatePatch struct {
	Title       *string
	Description *string
	Status      *types.GoalStatus
	Priority    *types.GoalPriority
	Deadline    *time.Time
}

// Update applies patch to the goal, setting CompletedAt when status
// transitions to completed and clearing it on any other transition.
func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch) (*types.Goal, error) {
	g, err := s.backend.Goals().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("goals: update: load %s: %w", id, err)
	}
	if patch.Title != nil {
		g.Title = *patch.Title
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	if patch.Priority != nil {
		g.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		g.Deadline = patch.Deadline
	}
	if patch.Status != nil {
		g.Status = *patch.Status
		if *patch.Status == types.GoalCompleted {
			t := now()
			g.CompletedAt = &t
		} else {
			g.CompletedAt = nil
		}
	}
	g.UpdatedAt = now()
	if err := s.backend.Goals().Update(ctx, g); err != nil {
		return nil, fmt.Errorf("goals: update %s: %w", id, err)
	}
	return g, nil
}

// Delete removes a goal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.backend.Goals().Delete(ctx, id); err != nil {
		return fmt.Errorf("goals: delete %s: %w", id, err)
	}
	return nil
}

// AddMilestone appends a milestone at the next order position.
func (s *Service) AddMilestone(ctx context.Context, goalID, title string) (*types.Goal, error) {
	g, err := s.backend.Goals().Get(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("goals: add milestone: load %s: %w", goalID, err)
	}
	order := 0
	for _, m := range g.Milestones {
		if m.Order >= order {
			order = m.Order + 1
		}
	}
	g.Milestones = append(g.Milestones, types.Milestone{
		Title: title, Status: types.MilestonePending, Order: order, CreatedAt: now(),
	})
	g.UpdatedAt = now()
	if err := s.backend.Goals().Update(ctx, g); err != nil {
		return nil, fmt.Errorf("goals: add milestone: %w", err)
	}
	return g, nil
}

// SetMilestoneStatus updates the status of the milestone at the given
// order position.
func (s *Service) SetMilestoneStatus(ctx context.Context, goalID string, order int, status types.MilestoneStatus) (*types.Goal, error) {
	g, err := s.backend.Goals().Get(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("goals: set milestone status: load %s: %w", goalID, err)
	}
	found := false
	for i := range g.Milestones {
		if g.Milestones[i].Order == order {
			g.Milestones[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("goals: no milestone at order %d for goal %s", order, goalID)
	}
	g.UpdatedAt = now()
	if err := s.backend.Goals().Update(ctx, g); err != nil {
		return nil, fmt.Errorf("goals: set milestone status: %w", err)
	}
	return g, nil
}

// LinkProgress checks memory m's embedding against every active goal's
// description embedding and, for any goal clearing cfg.AutolinkThreshold,
// tags m goal-progress and records the association in m's metadata under
// "goal_ids". Returns the ids of goals the memory was linked to.
func (s *Service) LinkProgress(ctx context.Context, m *types.Memory, cfg config.GoalConfig) ([]string, error) {
	if len(m.Embedding) == 0 {
		return nil, nil
	}
	threshold := cfg.AutolinkThreshold
	if threshold <= 0 {
		threshold = 0.6
	}

	activeGoals, err := s.backend.Goals().List(ctx, types.GoalActive)
	if err != nil {
		return nil, fmt.Errorf("goals: link progress: list active: %w", err)
	}

	var linked []string
	for _, g := range activeGoals {
		if g.Description == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, g.Description)
		if err != nil {
			continue // oracle degraded; skip this goal for now
		}
		if embedding.CosineSimilarity(m.Embedding, vec) >= threshold {
			linked = append(linked, g.ID)
		}
	}
	if len(linked) == 0 {
		return nil, nil
	}

	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	m.Metadata["goal_ids"] = linked

	tags, err := s.backend.Tags().TagsOf(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("goals: link progress: load tags: %w", err)
	}
	if !containsTag(tags, "goal-progress") {
		tags = append(tags, "goal-progress")
		if err := s.backend.Tags().SetTags(ctx, m.ID, tags); err != nil {
			return nil, fmt.Errorf("goals: link progress: set tags: %w", err)
		}
	}
	m.Tags = tags

	if err := s.backend.Memories().Update(ctx, m); err != nil {
		return nil, fmt.Errorf("goals: link progress: write metadata: %w", err)
	}
	return linked, nil
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
