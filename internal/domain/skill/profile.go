// Package skill converts streams of 0-100 assessment scores into per-skill
// mastery levels (1-5) with hysteresis, and aggregates skills into
// competency scores. Each skill levels independently; a competency is a
// derived view over its member skills.
package skill

import (
	"time"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// historySize bounds the per-skill score history ring.
const historySize = 10

// HistoryEntry is one recorded assessment score.
type HistoryEntry struct {
	Score int
	Date  time.Time
}

// Profile is the per-user, per-skill leveling state. Mutated only by the
// leveling engine, once per fully-answered assessment video.
type Profile struct {
	// UserID identifies the owning user.
	UserID string

	// SkillID identifies the skill.
	SkillID string

	// CompetencyID identifies the competency the skill belongs to.
	CompetencyID string

	// CurrentScore is the latest raw score, used for level transitions.
	CurrentScore int

	// AverageScore is the running mean over every assessment ever
	// recorded, used for competency aggregation stability.
	AverageScore float64

	// AssessmentCount is the number of assessments recorded.
	AssessmentCount int

	// Level is the mastery level, 1 to 5.
	Level int

	// ConsecutiveAboveThreshold is the signed hysteresis counter.
	// Positive values count qualifying scores toward the next level,
	// negative values count sub-threshold scores toward demotion.
	ConsecutiveAboveThreshold int

	// History holds the last 10 scores, most recent first.
	History []HistoryEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates an unassessed level-1 profile.
func NewProfile(userID, skillID, competencyID string, now time.Time) (*Profile, error) {
	if userID == "" || skillID == "" {
		return nil, shared.NewDomainError("skill", "Create", shared.ErrInvalidID, "user id and skill id are required")
	}

	return &Profile{
		UserID:       userID,
		SkillID:      skillID,
		CompetencyID: competencyID,
		Level:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsAssessed reports whether the skill has at least one recorded assessment.
func (p *Profile) IsAssessed() bool {
	return p.AssessmentCount > 0
}

// recordScore folds a new score into the running stats and the history ring.
func (p *Profile) recordScore(score int, now time.Time) {
	p.AverageScore = (p.AverageScore*float64(p.AssessmentCount) + float64(score)) / float64(p.AssessmentCount+1)
	p.AssessmentCount++
	p.CurrentScore = score

	p.History = append([]HistoryEntry{{Score: score, Date: now}}, p.History...)
	if len(p.History) > historySize {
		p.History = p.History[:historySize]
	}
	p.UpdatedAt = now
}
