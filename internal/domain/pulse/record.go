package pulse

import (
	"bytes"
	"encoding/json"
	"time"
)

// Score is a rating read back from the shared store, where records are not
// trusted to be well formed.
type Score struct {
	Value float64
	Valid bool
}

func decodeScore(raw json.RawMessage) Score {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Score{}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return Score{}
	}
	return Score{Value: f, Valid: true}
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// StoredRecord is one element of the shared anonymized store. Records loaded
// from storage keep their original bytes and are written back verbatim, so a
// read-modify-write never rewrites data it did not add.
type StoredRecord struct {
	Entry  Entry
	Mood   Score
	Stress Score
	key    string
	raw    json.RawMessage
}

func NewStoredRecord(e Entry) StoredRecord {
	return StoredRecord{
		Entry:  e,
		Mood:   Score{Value: e.Mood, Valid: true},
		Stress: Score{Value: e.Stress, Valid: true},
		key:    e.Key(),
	}
}

// Key is the canonical timestamp, or the raw timestamp text when it does not
// parse. Empty when the record has none.
func (r StoredRecord) Key() string { return r.key }

// Valid reports whether the record contributes to statistics.
func (r StoredRecord) Valid() bool { return r.Mood.Valid }

func (r StoredRecord) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal(r.Entry)
}

func (r *StoredRecord) UnmarshalJSON(b []byte) error {
	*r = StoredRecord{raw: append(json.RawMessage(nil), b...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return nil
	}

	scores := make(map[Dimension]Score, NumDimensions)
	for _, dim := range Dimensions() {
		s := decodeScore(fields[dim.String()])
		scores[dim] = s
		if s.Valid {
			r.Entry.Ratings.Set(dim, s.Value)
		}
	}
	r.Mood = scores[DimensionMood]
	r.Stress = scores[DimensionStress]

	r.Entry.Text, _ = decodeString(fields["text"])
	r.Entry.Insight, _ = decodeString(fields["insight"])
	r.Entry.Day, _ = decodeString(fields["day"])
	if s, ok := decodeString(fields["sentiment"]); ok {
		r.Entry.Sentiment = Sentiment(s)
	}
	var keywords []string
	if raw, ok := fields["keywords"]; ok && json.Unmarshal(raw, &keywords) == nil {
		r.Entry.Keywords = keywords
	}

	if ts, ok := decodeString(fields["timestamp"]); ok {
		r.key = ts
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Entry.Timestamp = parsed
			r.key = TimestampKey(parsed)
		}
	} else if raw := bytes.TrimSpace(fields["timestamp"]); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		r.key = string(raw)
	}
	return nil
}
