package pulse

import (
	"time"
)

const FallbackInsight = "Keep tracking to see patterns."

// Classification is the analysis triple for one draft. Sentiment is the raw
// label returned upstream; NewEntry normalizes it.
type Classification struct {
	Sentiment string   `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Insight   string   `json:"insight"`
}

// FallbackClassification is used whenever the analysis call cannot produce a
// usable result.
func FallbackClassification() Classification {
	return Classification{
		Sentiment: string(SentimentNeutral),
		Keywords:  []string{},
		Insight:   FallbackInsight,
	}
}

// Entry is one classified check-in. Entries are values: history holds copies
// and nothing mutates an entry once it is built.
type Entry struct {
	Ratings
	Text      string    `json:"text"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Insight   string    `json:"insight,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Day       string    `json:"day,omitempty"`
}

// NewEntry classifies a draft at the given instant. This is the only place
// an upstream sentiment label is normalized.
func NewEntry(d Draft, c Classification, at time.Time) Entry {
	keywords := make([]string, len(c.Keywords))
	copy(keywords, c.Keywords)
	return Entry{
		Ratings:   d.Ratings,
		Text:      d.Text,
		Sentiment: NormalizeSentiment(c.Sentiment),
		Insight:   c.Insight,
		Keywords:  keywords,
		Timestamp: at,
		Day:       at.Format("Mon"),
	}
}

// keyLayout renders every instant with the same zone and precision, so
// "08:00:00.120Z", "08:00:00.12Z" and "10:00:00.12+02:00" share one key.
const keyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TimestampKey is the dedup identity of an instant.
func TimestampKey(t time.Time) string {
	return t.UTC().Format(keyLayout)
}

// Key is the identity of an entry in the shared store: two records are the
// same entity iff their timestamps denote the same instant.
func (e Entry) Key() string {
	if e.Timestamp.IsZero() {
		return ""
	}
	return TimestampKey(e.Timestamp)
}

// SentimentOrNeutral is the label used for reports and suggestion lookup.
func (e Entry) SentimentOrNeutral() Sentiment {
	if e.Sentiment.Valid() {
		return e.Sentiment
	}
	return SentimentNeutral
}
