package pulse

import "strconv"

// WeeklyReport is an anonymized summary appended once per non-empty sync.
// StudentIDHash is random per report and cannot be joined to any entry.
type WeeklyReport struct {
	ID              int64  `json:"id"`
	WeekStart       string `json:"week_start"`
	StudentIDHash   string `json:"student_id_hash"`
	TrendSummary    string `json:"trend_summary"`
	DominantEmotion string `json:"dominant_emotion"`
	StressPeak      bool   `json:"stress_peak"`
	SuggestionID    string `json:"suggestion_id"`
}

// AggregateStats is the campus-wide projection over valid shared records.
type AggregateStats struct {
	AvgMood      float64 `json:"avg_mood"`
	AvgMoodLabel string  `json:"avg_mood_label"`
	Count        int     `json:"count"`
	TopStressor  string  `json:"top_stressor"`
}

const NoStressor = "None"

func EmptyStats() AggregateStats {
	return AggregateStats{AvgMood: 0, AvgMoodLabel: "0", Count: 0, TopStressor: NoStressor}
}

// FormatMood renders a mean mood the way the dashboard shows it (one decimal).
func FormatMood(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// CampusAnalysis is the on-demand trend/stressor/intervention triple.
type CampusAnalysis struct {
	Trend        string `json:"trend"`
	Stressor     string `json:"stressor"`
	Intervention string `json:"intervention"`
}
