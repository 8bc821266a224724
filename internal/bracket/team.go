package bracket

type Team struct {
	Name string `json:"name"`
	// Seed is the 1-based entry rank.
	Seed       int  `json:"seed"`
	Eliminated bool `json:"eliminated"`
}
