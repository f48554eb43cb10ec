package canasta

import "canasta-arena/internal/deck"

// MatchStatus reports the outcome of committing a finished round.
type MatchStatus struct {
	RoundOver        bool  `json:"roundOver"`
	MatchOver        bool  `json:"matchOver"`
	Winner           int   `json:"winner"` // team index, -1 when undecided or tied
	Tie              bool  `json:"tie"`
	CumulativeScores []int `json:"cumulativeScores"`
}

// endRound finishes the round: terminal phase, final score breakdown.
// wentOutSeat and wentOutConcealed must already be set by the caller.
func (g *Game) endRound() {
	g.phase = PhaseGameOver
	g.finalScores = []TeamScore{
		g.scoreTeam(0),
		g.scoreTeam(1),
	}
}

func (g *Game) scoreTeam(team int) TeamScore {
	var s TeamScore

	for _, pile := range g.melds[team] {
		s.Base += deck.Points(pile)
		if len(pile) >= 7 {
			if deck.WildCount(pile) == 0 {
				s.CanastaBonus += 500
			} else {
				s.CanastaBonus += 300
			}
		}
	}

	redThrees := len(g.redThrees[team])
	s.RedThreePoints = redThrees * 100
	if redThrees == 4 {
		s.RedThreePoints = 800
	}
	// Red threes turn into a penalty for a team that never opened.
	if !g.hasOpened(team) {
		s.RedThreePoints = -s.RedThreePoints
	}

	for seat, hand := range g.hands {
		if g.teamOf[seat] == team {
			s.Deductions -= deck.Points(hand)
		}
	}

	if g.wentOutSeat >= 0 && g.teamOf[g.wentOutSeat] == team {
		s.GoOutBonus = 100
		if g.wentOutConcealed {
			s.GoOutBonus = 200
		}
	}

	s.Total = s.Base + s.CanastaBonus + s.RedThreePoints + s.Deductions + s.GoOutBonus
	return s
}

// ResolveMatchStatus folds the finished round's totals into the cumulative
// scores exactly once and reports whether the match is decided. Safe to call
// repeatedly.
func (g *Game) ResolveMatchStatus() MatchStatus {
	status := MatchStatus{Winner: -1}

	if g.phase != PhaseGameOver {
		status.CumulativeScores = g.CumulativeScores()
		return status
	}
	status.RoundOver = true

	if !g.scoresCommitted {
		for team, score := range g.finalScores {
			g.cumulativeScores[team] += score.Total
		}
		g.scoresCommitted = true
	}

	a, b := g.cumulativeScores[0], g.cumulativeScores[1]
	if a >= g.opts.WinScore || b >= g.opts.WinScore {
		status.MatchOver = true
		switch {
		case a > b:
			status.Winner = 0
		case b > a:
			status.Winner = 1
		default:
			status.Tie = true
		}
	}

	status.CumulativeScores = g.CumulativeScores()
	return status
}
