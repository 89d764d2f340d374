package models

// SampleSlate is a ten-player showdown slate used for seeding and demos.
func SampleSlate(date string) []RosterEntry {
	rows := []struct {
		name, team, pos string
		salary          int
		fppg            float64
	}{
		{"Mike Trout", "LAA", "OF", 9500, 12.3},
		{"Mookie Betts", "LAD", "OF", 10200, 13.1},
		{"Shohei Ohtani", "LAA", "P", 11000, 15.2},
		{"Freddie Freeman", "LAD", "1B", 9200, 11.8},
		{"Jose Ramirez", "CLE", "3B", 8700, 10.9},
		{"Vladimir Guerrero Jr.", "TOR", "1B", 9000, 11.2},
		{"Trea Turner", "PHI", "SS", 8800, 10.7},
		{"Ronald Acuña Jr.", "ATL", "OF", 10500, 14.0},
		{"Pete Alonso", "NYM", "1B", 8600, 10.5},
		{"Julio Rodriguez", "SEA", "OF", 9300, 12.0},
	}
	entries := make([]RosterEntry, len(rows))
	for i, r := range rows {
		entries[i] = RosterEntry{
			Date:        date,
			Name:        r.name,
			Team:        r.team,
			Position:    r.pos,
			Salary:      r.salary,
			FPPG:        r.fppg,
			GamesPlayed: 60,
			Active:      true,
		}
	}
	return entries
}
