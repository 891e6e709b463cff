package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/llm"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

var classificationSchema = llm.Schema{
	Name: "entry_classification",
	Fields: []llm.Field{
		{Name: "sentiment", Kind: llm.FieldString, Enum: pulse.SentimentLabels(), Description: "Overall sentiment of the check-in."},
		{Name: "keywords", Kind: llm.FieldStringArray, Description: "Key words from the journal."},
		{Name: "insight", Kind: llm.FieldString, Description: "One-sentence insight for the student."},
	},
}

// ClassificationService labels a completed draft. Classify never fails: any
// problem with the analysis call yields the fallback classification.
type ClassificationService interface {
	Classify(ctx context.Context, d pulse.Draft) pulse.Classification
}

type classificationService struct {
	log     *logger.Logger
	gen     llm.Generator
	timeout time.Duration
}

// NewClassificationService accepts a nil generator, in which case every
// entry gets the fallback classification.
func NewClassificationService(log *logger.Logger, gen llm.Generator, timeout time.Duration) ClassificationService {
	serviceLog := log.With("service", "ClassificationService")
	if gen == nil {
		serviceLog.Warn("no analysis provider configured; entries will use the fallback classification")
	}
	return &classificationService{log: serviceLog, gen: gen, timeout: timeout}
}

func (s *classificationService) Classify(ctx context.Context, d pulse.Draft) pulse.Classification {
	if s.gen == nil {
		return pulse.FallbackClassification()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.gen.GenerateJSON(ctx, classificationPrompt(d), classificationSchema)
	if err != nil {
		s.log.Warn("classification failed; using fallback",
			"provider", s.gen.Provider(),
			"kind", llm.KindOf(err).String(),
			"error", err,
		)
		return pulse.FallbackClassification()
	}
	c, err := parseClassification(text)
	if err != nil {
		s.log.Warn("classification response unusable; using fallback",
			"provider", s.gen.Provider(),
			"kind", llm.KindMalformed.String(),
			"error", err,
		)
		return pulse.FallbackClassification()
	}
	return c
}

func classificationPrompt(d pulse.Draft) string {
	var b strings.Builder
	b.WriteString("Analyze this student mood log:\n\"")
	for i, dim := range pulse.Dimensions() {
		if i > 0 {
			b.WriteString(", ")
		}
		key := dim.String()
		fmt.Fprintf(&b, "%s%s: %s/5", strings.ToUpper(key[:1]), key[1:], formatRating(d.Ratings.Get(dim)))
	}
	fmt.Fprintf(&b, ".\nJournal: %s\"\n\n", d.Text)
	b.WriteString("Task:\n")
	fmt.Fprintf(&b, "1. Classify into one of: %s.\n", strings.Join(pulse.SentimentLabels(), ", "))
	b.WriteString("2. Extract key keywords.\n")
	b.WriteString("3. Provide a 1-sentence insight.\n\n")
	b.WriteString(`Output JSON: { "sentiment": "...", "keywords": ["..."], "insight": "..." }`)
	return b.String()
}

func formatRating(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func parseClassification(text string) (pulse.Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pulse.Classification{}, fmt.Errorf("empty candidate text")
	}
	var raw struct {
		Sentiment *string  `json:"sentiment"`
		Keywords  []string `json:"keywords"`
		Insight   *string  `json:"insight"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return pulse.Classification{}, err
	}
	if raw.Sentiment == nil && raw.Insight == nil && raw.Keywords == nil {
		return pulse.Classification{}, fmt.Errorf("response has none of sentiment, keywords, insight")
	}
	c := pulse.Classification{Keywords: raw.Keywords}
	if raw.Sentiment != nil {
		c.Sentiment = *raw.Sentiment
	}
	if raw.Insight != nil {
		c.Insight = *raw.Insight
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return c, nil
}
