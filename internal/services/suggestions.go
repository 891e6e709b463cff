package services

import "github.com/yungbote/campuspulse-backend/internal/domain/pulse"

type Activity struct {
	Title       string `json:"title"`
	Description string `json:"desc"`
}

// Suggestions are the daily, weekly and monthly activities offered for one
// sentiment.
type Suggestions struct {
	Sentiment pulse.Sentiment `json:"sentiment"`
	Daily     Activity        `json:"daily"`
	Weekly    Activity        `json:"weekly"`
	Monthly   Activity        `json:"monthly"`
}

var suggestionTable = map[pulse.Sentiment]Suggestions{
	pulse.SentimentStressed: {
		Daily:   Activity{"Breathing Session", "5-minute deep breathing."},
		Weekly:  Activity{"Yoga Morning", "Join the sunrise yoga group."},
		Monthly: Activity{"Time-Mgmt Workshop", "Learn to balance workload."},
	},
	pulse.SentimentLowEnergy: {
		Daily:   Activity{"Hydration Reminder", "Drink a glass of water now."},
		Weekly:  Activity{"Healthy Breakfast", "Community breakfast this Sunday."},
		Monthly: Activity{"Sports Tournament", "Get moving with intramurals."},
	},
	pulse.SentimentAnxious: {
		Daily:   Activity{"Quiet Library Hour", "Find a silent corner."},
		Weekly:  Activity{"Mindfulness Walk", "Guided walk through campus."},
		Monthly: Activity{"Psych Awareness Day", "Workshops on anxiety."},
	},
	pulse.SentimentSad: {
		Daily:   Activity{"Gratitude Wall", "Write one thing you are grateful for."},
		Weekly:  Activity{"Movie Night", "Relax with a comedy classic."},
		Monthly: Activity{"Bonding Festival", "Connect with peers."},
	},
	pulse.SentimentAngry: {
		Daily:   Activity{"Stretch Break", "Release tension physically."},
		Weekly:  Activity{"Sports Evening", "Burn off energy."},
		Monthly: Activity{"Art Exhibition", "Express through creativity."},
	},
	pulse.SentimentHappy: {
		Daily:   Activity{"Positive Note Board", "Leave a kind note for others."},
		Weekly:  Activity{"Open Mic Night", "Share your joy."},
		Monthly: Activity{"Motivational Speaker", "Inspire others."},
	},
	pulse.SentimentNeutral: {
		Daily:   Activity{"Journaling", "Reflect on your day."},
		Weekly:  Activity{"Nature Walk", "Get some fresh air."},
		Monthly: Activity{"Skill Workshop", "Learn something new."},
	},
}

// SuggestionsFor looks up a sentiment, falling back to Neutral.
func SuggestionsFor(s pulse.Sentiment) Suggestions {
	out, ok := suggestionTable[s]
	if !ok {
		s = pulse.SentimentNeutral
		out = suggestionTable[s]
	}
	out.Sentiment = s
	return out
}

// SuggestionsForHistory keys on the latest entry's sentiment.
func SuggestionsForHistory(history []pulse.Entry) Suggestions {
	if len(history) == 0 {
		return SuggestionsFor(pulse.SentimentNeutral)
	}
	return SuggestionsFor(history[len(history)-1].Sentiment)
}
