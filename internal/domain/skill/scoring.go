package skill

import (
	"math"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

// QuestionKind distinguishes the two scorable assessment question types.
type QuestionKind string

const (
	// KindPerception scores how close the answer lands to a benchmark on
	// the question's scale.
	KindPerception QuestionKind = "perception"

	// KindIntent scores a 1-7 agreement answer proportionally.
	KindIntent QuestionKind = "intent"
)

// intentScaleMax is the fixed 1-7 scale of intent questions.
const intentScaleMax = 7

// PerceptionScore maps an answer against its benchmark on a 1..scaleMax
// scale to a 0-100 score. The score falls linearly with distance from the
// benchmark.
func PerceptionScore(answer, benchmark, scaleMax int) (int, error) {
	if scaleMax < 2 {
		return 0, shared.NewDomainError("skill", "PerceptionScore", shared.ErrValueOutOfRange, "scale max must be at least 2")
	}
	if answer < 1 || answer > scaleMax || benchmark < 1 || benchmark > scaleMax {
		return 0, shared.NewDomainError("skill", "PerceptionScore", shared.ErrValueOutOfRange, "answer and benchmark must be on the scale")
	}

	distance := math.Abs(float64(answer - benchmark))
	return int(math.Round((1 - distance/float64(scaleMax-1)) * 100)), nil
}

// IntentScore maps a 1-7 answer proportionally to a 0-100 score.
func IntentScore(answer int) (int, error) {
	if answer < 1 || answer > intentScaleMax {
		return 0, shared.NewDomainError("skill", "IntentScore", shared.ErrValueOutOfRange, "intent answer must be between 1 and 7")
	}
	return int(math.Round(float64(answer) / intentScaleMax * 100)), nil
}

// VideoScore reduces the per-question scores of one assessment video to the
// single skill score for that video: their arithmetic mean, rounded. A video
// produces exactly one profile update, never one per question.
func VideoScore(perQuestionScores []int) (int, error) {
	if len(perQuestionScores) == 0 {
		return 0, shared.ErrNoScorableAnswers
	}

	sum := 0
	for _, s := range perQuestionScores {
		if s < 0 || s > 100 {
			return 0, shared.ErrInvalidScore
		}
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(perQuestionScores)))), nil
}
