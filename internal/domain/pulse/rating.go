package pulse

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrRatingOutOfRange = errors.New("rating out of range")
	ErrRatingOffStep    = errors.New("rating not on scale step")
	ErrRatingNotNumber  = errors.New("rating is not a number")
)

// Dimension is one of the eight self-reported wellbeing ratings, in the fixed
// order they are asked.
type Dimension int

const (
	DimensionMood Dimension = iota
	DimensionStress
	DimensionEnergy
	DimensionSleep
	DimensionAnxiety
	DimensionFocus
	DimensionSocial
	DimensionOptimism
)

const NumDimensions = 8

type dimensionInfo struct {
	key   string
	label string
	low   string
	high  string
}

var dimensionTable = [NumDimensions]dimensionInfo{
	{"mood", "Overall Mood", "Low", "High"},
	{"stress", "Stress Level", "Calm", "Panic"},
	{"energy", "Energy Level", "Drained", "Charged"},
	{"sleep", "Sleep Quality", "Poor", "Great"},
	{"anxiety", "Anxiety", "Peaceful", "Anxious"},
	{"focus", "Focus", "Scattered", "Laser"},
	{"social", "Social Connection", "Lonely", "Connected"},
	{"optimism", "Optimism", "Pessimistic", "Hopeful"},
}

func Dimensions() []Dimension {
	out := make([]Dimension, NumDimensions)
	for i := range out {
		out[i] = Dimension(i)
	}
	return out
}

func (d Dimension) Valid() bool { return d >= 0 && int(d) < NumDimensions }

func (d Dimension) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionTable[d].key
}

// Label is the question title shown for this dimension.
func (d Dimension) Label() string {
	if !d.Valid() {
		return ""
	}
	return dimensionTable[d].label
}

// Anchors returns the words describing the low and high ends of the scale.
func (d Dimension) Anchors() (low, high string) {
	if !d.Valid() {
		return "", ""
	}
	return dimensionTable[d].low, dimensionTable[d].high
}

// Ratings holds one value per dimension. JSON keys match the stored entry
// layout, so Ratings is embedded flat in Entry.
type Ratings struct {
	Mood     float64 `json:"mood"`
	Stress   float64 `json:"stress"`
	Energy   float64 `json:"energy"`
	Sleep    float64 `json:"sleep"`
	Anxiety  float64 `json:"anxiety"`
	Focus    float64 `json:"focus"`
	Social   float64 `json:"social"`
	Optimism float64 `json:"optimism"`
}

func (r Ratings) Get(d Dimension) float64 {
	switch d {
	case DimensionMood:
		return r.Mood
	case DimensionStress:
		return r.Stress
	case DimensionEnergy:
		return r.Energy
	case DimensionSleep:
		return r.Sleep
	case DimensionAnxiety:
		return r.Anxiety
	case DimensionFocus:
		return r.Focus
	case DimensionSocial:
		return r.Social
	case DimensionOptimism:
		return r.Optimism
	}
	return math.NaN()
}

func (r *Ratings) Set(d Dimension, v float64) {
	switch d {
	case DimensionMood:
		r.Mood = v
	case DimensionStress:
		r.Stress = v
	case DimensionEnergy:
		r.Energy = v
	case DimensionSleep:
		r.Sleep = v
	case DimensionAnxiety:
		r.Anxiety = v
	case DimensionFocus:
		r.Focus = v
	case DimensionSocial:
		r.Social = v
	case DimensionOptimism:
		r.Optimism = v
	}
}

// Scale bounds every rating. Step 1 is the integral variant, 0.1 the
// fractional one.
type Scale struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
	Default float64 `json:"default" yaml:"default"`
}

func DefaultScale() Scale { return Scale{Min: 1, Max: 5, Step: 1, Default: 3} }

func FractionalScale() Scale { return Scale{Min: 1, Max: 5, Step: 0.1, Default: 3} }

// Midpoint separates elevated from non-elevated ratings (3 on a 1-5 scale).
func (s Scale) Midpoint() float64 { return (s.Min + s.Max) / 2 }

func (s Scale) Validate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrRatingNotNumber
	}
	if v < s.Min || v > s.Max {
		return fmt.Errorf("%w: %v not in [%v,%v]", ErrRatingOutOfRange, v, s.Min, s.Max)
	}
	if s.Step > 0 {
		steps := (v - s.Min) / s.Step
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			return fmt.Errorf("%w: %v (step %v)", ErrRatingOffStep, v, s.Step)
		}
	}
	return nil
}

// Check reports a misconfigured scale.
func (s Scale) Check() error {
	if !(s.Min < s.Max) {
		return fmt.Errorf("scale: min %v must be below max %v", s.Min, s.Max)
	}
	if s.Step < 0 {
		return fmt.Errorf("scale: negative step %v", s.Step)
	}
	if err := s.Validate(s.Default); err != nil {
		return fmt.Errorf("scale: default: %w", err)
	}
	return nil
}

// Draft is an entry still being collected; it carries no classification.
type Draft struct {
	Ratings Ratings `json:"ratings"`
	Text    string  `json:"text"`
}

func NewDraft(scale Scale) Draft {
	var d Draft
	for _, dim := range Dimensions() {
		d.Ratings.Set(dim, scale.Default)
	}
	return d
}

func (d Draft) Validate(scale Scale) error {
	for _, dim := range Dimensions() {
		if err := scale.Validate(d.Ratings.Get(dim)); err != nil {
			return fmt.Errorf("%s: %w", dim, err)
		}
	}
	return nil
}
