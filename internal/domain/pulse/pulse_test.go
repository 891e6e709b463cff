package pulse

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestNormalizeSentiment(t *testing.T) {
	cases := []struct {
		in   string
		want Sentiment
	}{
		{in: "Happy", want: SentimentHappy},
		{in: " low-energy ", want: SentimentLowEnergy},
		{in: "", want: SentimentNeutral},
		{in: "Elated", want: SentimentNeutral},
		{in: "STRESSED", want: SentimentStressed},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := NormalizeSentiment(tc.in); got != tc.want {
				t.Fatalf("NormalizeSentiment(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
	if Sentiment("happy").Valid() {
		t.Fatalf("Valid: lower-case label must not be a member")
	}
}

func TestScaleValidate(t *testing.T) {
	integral := DefaultScale()
	fractional := FractionalScale()

	cases := []struct {
		name  string
		scale Scale
		v     float64
		want  error
	}{
		{name: "integral_ok", scale: integral, v: 4},
		{name: "integral_off_step", scale: integral, v: 3.5, want: ErrRatingOffStep},
		{name: "fractional_ok", scale: fractional, v: 3.7},
		{name: "below_min", scale: fractional, v: 0.9, want: ErrRatingOutOfRange},
		{name: "above_max", scale: integral, v: 6, want: ErrRatingOutOfRange},
		{name: "nan", scale: integral, v: math.NaN(), want: ErrRatingNotNumber},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scale.Validate(tc.v)
			if tc.want == nil && err != nil {
				t.Fatalf("Validate(%v): unexpected error %v", tc.v, err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("Validate(%v): got %v, want %v", tc.v, err, tc.want)
			}
		})
	}
}

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft(DefaultScale())
	for _, dim := range Dimensions() {
		if got := d.Ratings.Get(dim); got != 3 {
			t.Fatalf("NewDraft: %s=%v, want 3", dim, got)
		}
	}
	if d.Text != "" {
		t.Fatalf("NewDraft: expected empty text")
	}
	if err := d.Validate(DefaultScale()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNewEntryNormalizesAndCopies(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	c := Classification{Sentiment: "bogus", Keywords: []string{"exams"}, Insight: "x"}
	e := NewEntry(NewDraft(DefaultScale()), c, at)
	if e.Sentiment != SentimentNeutral {
		t.Fatalf("NewEntry: sentiment=%q, want Neutral", e.Sentiment)
	}
	c.Keywords[0] = "changed"
	if e.Keywords[0] != "exams" {
		t.Fatalf("NewEntry: keywords aliased the classification slice")
	}
	if e.Day != "Mon" {
		t.Fatalf("NewEntry: day=%q, want Mon", e.Day)
	}
	if e.Key() != "2026-10-19T09:30:00.000000000Z" {
		t.Fatalf("Key: got %q", e.Key())
	}
}

func TestStoredRecordTolerantDecode(t *testing.T) {
	raw := `[
		{"mood": 4, "stress": 2, "sentiment": "Happy", "timestamp": "2026-10-19T09:30:00Z", "extra": true},
		{"mood": "high", "stress": 5, "timestamp": "2026-10-19T10:00:00Z"},
		{"mood": null},
		42
	]`
	var recs []StoredRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("Unmarshal: expected 4 records, got %d", len(recs))
	}
	if !recs[0].Valid() || recs[0].Entry.Mood != 4 || recs[0].Key() != "2026-10-19T09:30:00.000000000Z" {
		t.Fatalf("record 0: unexpected %+v", recs[0])
	}
	if recs[1].Valid() || !recs[1].Stress.Valid {
		t.Fatalf("record 1: mood must be invalid, stress valid: %+v", recs[1])
	}
	if recs[2].Valid() || recs[2].Key() != "" {
		t.Fatalf("record 2: unexpected %+v", recs[2])
	}
	if recs[3].Valid() {
		t.Fatalf("record 3: non-object must be invalid")
	}

	out, err := json.Marshal(recs[:1])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back []map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal back: %v", err)
	}
	if back[0]["extra"] != true {
		t.Fatalf("Marshal: unknown fields must survive a rewrite, got %v", back[0])
	}
}

func TestNewStoredRecordKeyMatchesDecodedKey(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 123000000, time.UTC)
	rec := NewStoredRecord(NewEntry(NewDraft(DefaultScale()), FallbackClassification(), at))
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back StoredRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Key() != rec.Key() {
		t.Fatalf("key changed across storage: %q vs %q", back.Key(), rec.Key())
	}
}

func TestStoredRecordKeyIsCanonicalInstant(t *testing.T) {
	cases := []struct {
		name string
		ts   string
		want string
	}{
		{"millis with trailing zero", "2026-10-19T08:00:00.120Z", "2026-10-19T08:00:00.120000000Z"},
		{"trimmed fraction", "2026-10-19T08:00:00.12Z", "2026-10-19T08:00:00.120000000Z"},
		{"offset", "2026-10-19T10:00:00.12+02:00", "2026-10-19T08:00:00.120000000Z"},
		{"unparseable", "yesterday", "yesterday"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec StoredRecord
			if err := json.Unmarshal([]byte(`{"mood":4,"timestamp":"`+tc.ts+`"}`), &rec); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if rec.Key() != tc.want {
				t.Fatalf("Key: got %q want %q", rec.Key(), tc.want)
			}
		})
	}

	at := time.Date(2026, 10, 19, 8, 0, 0, 120000000, time.UTC)
	e := NewEntry(NewDraft(DefaultScale()), FallbackClassification(), at)
	if e.Key() != "2026-10-19T08:00:00.120000000Z" {
		t.Fatalf("Entry.Key: got %q", e.Key())
	}
}
