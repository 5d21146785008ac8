package skill

import (
	"math"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// CompetencyScore is the derived rollup over a competency's member skills.
// It is never mutated independently; it is recomputed synchronously whenever
// any member skill updates.
type CompetencyScore struct {
	CompetencyID string

	// Level is the minimum level over assessed member skills.
	Level int

	// CurrentScore is the rounded mean of the assessed members' running
	// average scores.
	CurrentScore int

	// AssessedSkills is the number of member skills with at least one
	// assessment.
	AssessedSkills int
}

// RecomputeCompetency reduces the member profiles of one competency to its
// score. Only skills with at least one assessment participate; when none
// qualify the competency has no score and shared.ErrCompetencyUnscored is
// returned.
func RecomputeCompetency(competencyID string, members []*Profile) (CompetencyScore, error) {
	level := 0
	sum := 0.0
	assessed := 0

	for _, p := range members {
		if p == nil || !p.IsAssessed() {
			continue
		}
		if assessed == 0 || p.Level < level {
			level = p.Level
		}
		sum += p.AverageScore
		assessed++
	}

	if assessed == 0 {
		return CompetencyScore{}, shared.ErrCompetencyUnscored
	}

	return CompetencyScore{
		CompetencyID:   competencyID,
		Level:          level,
		CurrentScore:   int(math.Round(sum / float64(assessed))),
		AssessedSkills: assessed,
	}, nil
}
