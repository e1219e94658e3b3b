package service

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

func matchTypeText(match *entity.Match) string {
	if match.Staked {
		return "⭐ Star Match"
	}
	return "🏆 Trophy Match"
}

func matchHeader(match *entity.Match, player string) string {
	opponent := match.Opponent(player)

	return fmt.Sprintf("%s — You (%s) vs ID:%s (%s)",
		matchTypeText(match), match.Marks[player], opponent, match.Marks[opponent])
}

func introText(match *entity.Match, player string) string {
	var sb strings.Builder

	sb.WriteString(matchTypeText(match))
	sb.WriteString("\n")

	if match.Marks[player] == tictactoe.MarkX {
		sb.WriteString("You are ❌ (X).")
	} else {
		sb.WriteString("You are ⭕ (O).")
	}

	if match.Staked {
		sb.WriteString("\nStakes: Both players stake 1 star. Winner gets +0.5 stars.")
	}

	fmt.Fprintf(&sb, "\nMatch Format: Best of %d rounds vs ID:%s", match.Rounds, match.Opponent(player))

	return sb.String()
}

func scoreText(match *entity.Match) string {
	return fmt.Sprintf("📊 Score: %d - %d",
		match.RoundWins[match.Players[0]], match.RoundWins[match.Players[1]])
}

func roundText(match *entity.Match, player string) string {
	turn := "Opponent's turn"
	if match.Turn == player {
		turn = "Your turn"
	}

	return fmt.Sprintf("%s\nRound %d/%d\n%s\n🎲 Turn: %s\n%s",
		matchHeader(match, player), match.Round, match.Rounds, scoreText(match), turn, match.Board.Text())
}

func roundResultText(match *entity.Match, player string, result tictactoe.Result, roundWinner string) string {
	var verdict string

	switch {
	case result.Verdict == tictactoe.VerdictDraw:
		verdict = "🤝 Round was a draw!"
	case roundWinner == player:
		verdict = "🎉 You won the round!"
	default:
		verdict = "😢 You lost the round."
	}

	boardText := match.Board.Text()
	if result.Verdict == tictactoe.VerdictWin {
		boardText += fmt.Sprintf("🎉 Line: %d-%d-%d\n", result.Line[0]+1, result.Line[1]+1, result.Line[2]+1)
	}

	return fmt.Sprintf("%s\nRound %d Result!\n%s\n%s\n%s",
		matchHeader(match, player), match.Round, verdict, scoreText(match), boardText)
}

func finalText(match *entity.Match, player string, outcome entity.Outcome) string {
	var verdict string

	switch {
	case outcome.Kind == entity.OutcomeDraw:
		verdict = "🤝 Draw!"
	case outcome.Kind == entity.OutcomeAbandoned:
		verdict = "⚠️ Abandoned."
	case outcome.Winner == player:
		verdict = "🎉 You won!"
	default:
		verdict = "😢 You lost."
	}

	return fmt.Sprintf("%s\nMatch Result: %s\n%s",
		matchHeader(match, player), verdict, match.Board.Text())
}
