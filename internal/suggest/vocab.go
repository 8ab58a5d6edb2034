package suggest

import "strings"

// vocabEntry maps query keywords to a deterministic catalog search.
type vocabEntry struct {
	keywords []string
	query    string
	reason   string
}

// vocabulary is the fixed genre/mood table backing the deterministic
// fallback. Matching is substring-based over the lowercased query.
var vocabulary = []vocabEntry{
	{
		keywords: []string{"party", "dance", "upbeat", "energetic", "workout"},
		query:    "genre:dance-pop",
		reason:   "High-energy, positive tracks for dancing and workouts",
	},
	{
		keywords: []string{"chill", "relax", "calm", "mellow", "lofi", "lo-fi"},
		query:    "genre:chillout",
		reason:   "Laid-back, low-energy listening",
	},
	{
		keywords: []string{"sad", "melancholy", "heartbreak", "breakup", "cry"},
		query:    "genre:singer-songwriter",
		reason:   "Reflective and melancholy songwriting",
	},
	{
		keywords: []string{"dark", "intense", "angry", "heavy", "aggressive"},
		query:    "genre:metal",
		reason:   "Intense and dark, high-energy low-valence",
	},
	{
		keywords: []string{"acoustic", "unplugged", "folk", "stripped"},
		query:    "genre:folk",
		reason:   "Acoustic-forward arrangements",
	},
	{
		keywords: []string{"rap", "hip hop", "hip-hop", "hiphop"},
		query:    "genre:hip-hop",
		reason:   "Hip hop and rap",
	},
	{
		keywords: []string{"jazz", "smooth", "saxophone"},
		query:    "genre:jazz",
		reason:   "Jazz standards and modern jazz",
	},
	{
		keywords: []string{"electronic", "edm", "synth", "techno", "house"},
		query:    "genre:electronic",
		reason:   "Electronic and synth-driven music",
	},
	{
		keywords: []string{"rock", "guitar", "band"},
		query:    "genre:rock",
		reason:   "Guitar-driven rock",
	},
	{
		keywords: []string{"classical", "orchestra", "piano", "symphony"},
		query:    "genre:classical",
		reason:   "Orchestral and solo classical works",
	},
	{
		keywords: []string{"country", "twang", "nashville"},
		query:    "genre:country",
		reason:   "Country and Americana",
	},
	{
		keywords: []string{"r&b", "rnb", "soul", "smooth vocals"},
		query:    "genre:r-n-b",
		reason:   "R&B and soul",
	},
	{
		keywords: []string{"indie", "alternative", "underground"},
		query:    "genre:indie",
		reason:   "Independent and alternative releases",
	},
	{
		keywords: []string{"pop", "catchy", "radio", "hits"},
		query:    "genre:pop",
		reason:   "Mainstream pop hits",
	},
}

// defaultSuggestions is served when nothing in the vocabulary matches.
var defaultSuggestions = []Suggestion{
	{Query: "genre:pop", Reason: "Mainstream pop hits"},
	{Query: "genre:rock", Reason: "Guitar-driven rock"},
	{Query: "genre:hip-hop", Reason: "Hip hop and rap"},
}

// FallbackSuggestions matches the query against the fixed vocabulary. It is
// deterministic and never returns an empty list.
func FallbackSuggestions(query string) []Suggestion {
	q := strings.ToLower(query)
	var matched []Suggestion
	for _, entry := range vocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				matched = append(matched, Suggestion{Query: entry.query, Reason: entry.reason})
				break
			}
		}
		if len(matched) == 5 {
			break
		}
	}
	if len(matched) == 0 {
		return defaultSuggestions
	}
	return matched
}
