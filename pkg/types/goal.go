package types

import "time"

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalStalled   GoalStatus = "stalled"
	GoalAbandoned GoalStatus = "abandoned"
)

// GoalPriority ranks goals for surfacing and scheduling.
type GoalPriority string

const (
	PriorityLow      GoalPriority = "low"
	PriorityMedium   GoalPriority = "medium"
	PriorityHigh     GoalPriority = "high"
	PriorityCritical GoalPriority = "critical"
)

// MilestoneStatus is the lifecycle state of a single milestone.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
)

// Milestone is one ordered step towards a goal.
type Milestone struct {
	Title     string          `json:"title"`
	Status    MilestoneStatus `json:"status"`
	Order     int             `json:"order"`
	CreatedAt time.Time       `json:"created_at"`
}

// Goal tracks a long-running objective with milestones and progress
// memories auto-linked by embedding similarity to the goal description.
type Goal struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      GoalStatus     `json:"status"`
	Priority    GoalPriority   `json:"priority"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
	Milestones  []Milestone    `json:"milestones,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
