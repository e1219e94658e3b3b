package entity

const (
	OutcomeWin       = "win"
	OutcomeDraw      = "draw"
	OutcomeAbandoned = "abandoned"
)

// Outcome is the terminal result of a match. Winner and Loser are set only
// for OutcomeWin.
type Outcome struct {
	Kind   string
	Winner string
	Loser  string
}

func WinOutcome(winner, loser string) Outcome {
	return Outcome{Kind: OutcomeWin, Winner: winner, Loser: loser}
}

func DrawOutcome() Outcome {
	return Outcome{Kind: OutcomeDraw}
}

func AbandonedOutcome() Outcome {
	return Outcome{Kind: OutcomeAbandoned}
}
