package content

// Builtin returns the bundled destination bank, used when no content pack
// is configured. Clues descend from obscure (10) to obvious (2).
func Builtin() []Destination {
	return []Destination{
		{
			ID:      "paris",
			Name:    "Paris",
			Country: "France",
			Aliases: []string{"paree", "city of light"},
			Clues: []Clue{
				{Points: 10, Text: "This city has a 324 metre iron tower inaugurated in 1889."},
				{Points: 8, Text: "Known as the City of Light, famous for art and fashion."},
				{Points: 6, Text: "Home to the Louvre, the world's most visited art museum."},
				{Points: 4, Text: "From here high-speed trains run to Brussels and Amsterdam."},
				{Points: 2, Text: "Capital of France, famous for the Champs-Elysees and Notre-Dame."},
			},
			Followups: []Followup{
				{
					Text:          "Which river flows through this city?",
					Type:          MultipleChoice,
					Options:       []string{"Seine", "Loire", "Rhone", "Garonne"},
					CorrectAnswer: "Seine",
				},
				{
					Text:          "In which year was the iron tower inaugurated?",
					Type:          OpenText,
					CorrectAnswer: "1889",
				},
			},
		},
		{
			ID:      "tokyo",
			Name:    "Tokyo",
			Country: "Japan",
			Aliases: []string{"tokio", "edo"},
			Clues: []Clue{
				{Points: 10, Text: "This city has the world's busiest railway station, Shinjuku."},
				{Points: 8, Text: "It hosted the Summer Olympics in 1964 and 2020."},
				{Points: 6, Text: "Here stand both a red-and-white tower and the modern Skytree."},
				{Points: 4, Text: "The city sits on a bay and was famous for the Tsukiji fish market."},
				{Points: 2, Text: "Capital of Japan and one of the largest metropolises on earth."},
			},
			Followups: []Followup{
				{
					Text:          "What was this city called before 1868?",
					Type:          MultipleChoice,
					Options:       []string{"Edo", "Kyoto", "Osaka", "Nara"},
					CorrectAnswer: "Edo",
				},
			},
		},
		{
			ID:      "new-york",
			Name:    "New York",
			Country: "USA",
			Aliases: []string{"nyc", "new york city", "big apple"},
			Clues: []Clue{
				{Points: 10, Text: "This city has a green statue that was a gift from France in 1886."},
				{Points: 8, Text: "It consists of five boroughs, including Manhattan and Brooklyn."},
				{Points: 6, Text: "Here you find Times Square and the Broadway theatres."},
				{Points: 4, Text: "A 341 hectare park lies in the middle of the city."},
				{Points: 2, Text: "Largest city in the USA, often called the Big Apple."},
			},
			Followups: []Followup{
				{
					Text:          "How many boroughs does this city have?",
					Type:          OpenText,
					CorrectAnswer: "5",
				},
				{
					Text:          "Which country gifted the famous statue?",
					Type:          MultipleChoice,
					Options:       []string{"France", "England", "Spain", "Italy"},
					CorrectAnswer: "France",
				},
			},
		},
	}
}
