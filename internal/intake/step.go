package intake

import (
	"fmt"

	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
)

// Step is the wizard position. Question steps are numbered 1..NumDimensions
// and map onto the rating dimensions in order.
type Step int

const (
	StepIntro      Step = 0
	StepFreeText   Step = pulse.NumDimensions + 1
	StepSubmitting Step = pulse.NumDimensions + 2
	StepComplete   Step = pulse.NumDimensions + 3
)

func QuestionStep(d pulse.Dimension) Step { return Step(int(d) + 1) }

func (s Step) IsQuestion() bool { return s >= 1 && s <= pulse.NumDimensions }

// Dimension is the rating a question step collects.
func (s Step) Dimension() (pulse.Dimension, bool) {
	if !s.IsQuestion() {
		return 0, false
	}
	return pulse.Dimension(s - 1), true
}

func (s Step) String() string {
	switch {
	case s == StepIntro:
		return "intro"
	case s.IsQuestion():
		return fmt.Sprintf("question_%d", int(s))
	case s == StepFreeText:
		return "free_text"
	case s == StepSubmitting:
		return "submitting"
	case s == StepComplete:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}
