package charts

// sampleTopTracks is the last-resort chart served when both live sources are
// unavailable, so the chart UI always has entries to render.
func sampleTopTracks() []ChartTrack {
	return []ChartTrack{
		{Rank: 1, Title: "Blinding Lights", Artist: "The Weeknd"},
		{Rank: 2, Title: "As It Was", Artist: "Harry Styles"},
		{Rank: 3, Title: "Flowers", Artist: "Miley Cyrus"},
		{Rank: 4, Title: "Anti-Hero", Artist: "Taylor Swift"},
		{Rank: 5, Title: "Levitating", Artist: "Dua Lipa"},
		{Rank: 6, Title: "Heat Waves", Artist: "Glass Animals"},
		{Rank: 7, Title: "good 4 u", Artist: "Olivia Rodrigo"},
		{Rank: 8, Title: "Stay", Artist: "The Kid LAROI & Justin Bieber"},
		{Rank: 9, Title: "Bad Guy", Artist: "Billie Eilish"},
		{Rank: 10, Title: "Watermelon Sugar", Artist: "Harry Styles"},
	}
}
