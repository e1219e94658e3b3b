package entity

// Profile is a player's ledger record: trophy count, star balance and
// lifetime game counters.
type Profile struct {
	ID          string  `json:"id"`
	Trophies    int     `json:"trophies"`
	Stars       float64 `json:"stars"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
}

// BalanceDelta is a signed ledger adjustment produced by settlement or a
// queue stake movement.
type BalanceDelta struct {
	Trophies int
	Stars    float64
	Wins     int
	Losses   int
	Draws    int
	Games    int
}

// Apply adds a delta to the profile. Trophies and stars are floored at zero;
// the counters are kept independent of the floor, so a loss at zero trophies
// still records a loss and a played game.
func (that *Profile) Apply(delta BalanceDelta) {
	that.Trophies += delta.Trophies
	if that.Trophies < 0 {
		that.Trophies = 0
	}

	that.Stars += delta.Stars
	if that.Stars < 0 {
		that.Stars = 0
	}

	that.GamesPlayed += delta.Games
	that.Wins += delta.Wins
	that.Losses += delta.Losses
	that.Draws += delta.Draws
}

func (that *Profile) WinRate() float64 {
	if that.GamesPlayed == 0 {
		return 0
	}
	return float64(that.Wins) / float64(that.GamesPlayed) * 100
}
