package pulse

import "strings"

// Sentiment is the closed label set produced by entry classification.
type Sentiment string

const (
	SentimentHappy     Sentiment = "Happy"
	SentimentNeutral   Sentiment = "Neutral"
	SentimentSad       Sentiment = "Sad"
	SentimentAnxious   Sentiment = "Anxious"
	SentimentStressed  Sentiment = "Stressed"
	SentimentAngry     Sentiment = "Angry"
	SentimentLowEnergy Sentiment = "Low-Energy"
)

var sentiments = []Sentiment{
	SentimentHappy,
	SentimentNeutral,
	SentimentSad,
	SentimentAnxious,
	SentimentStressed,
	SentimentAngry,
	SentimentLowEnergy,
}

// Sentiments returns every label in canonical order.
func Sentiments() []Sentiment {
	out := make([]Sentiment, len(sentiments))
	copy(out, sentiments)
	return out
}

// SentimentLabels returns the labels as plain strings, for prompt and schema enums.
func SentimentLabels() []string {
	out := make([]string, len(sentiments))
	for i, s := range sentiments {
		out[i] = string(s)
	}
	return out
}

// ParseSentiment matches s against the label set, ignoring case and
// surrounding whitespace.
func ParseSentiment(s string) (Sentiment, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, known := range sentiments {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return "", false
}

// NormalizeSentiment maps unknown or empty labels to Neutral.
func NormalizeSentiment(s string) Sentiment {
	if v, ok := ParseSentiment(s); ok {
		return v
	}
	return SentimentNeutral
}

// Valid reports exact membership in the label set.
func (s Sentiment) Valid() bool {
	for _, known := range sentiments {
		if s == known {
			return true
		}
	}
	return false
}

func (s Sentiment) String() string { return string(s) }
