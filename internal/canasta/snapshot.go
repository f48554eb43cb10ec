package canasta

import (
	"slices"

	"canasta-arena/internal/deck"
)

// Read accessors for snapshot building. Everything returns copies so no
// caller can reach the engine's mutable state. The stock is exposed as a
// count only; undealt card identities never leave the engine.

func (g *Game) Options() Options { return g.opts }

func (g *Game) PlayerCount() int { return g.opts.PlayerCount }

func (g *Game) TeamOf(seat int) int { return g.teamOf[seat] }

func (g *Game) CurrentPlayer() int { return g.currentPlayer }

func (g *Game) Phase() Phase { return g.phase }

func (g *Game) RoundStarter() int { return g.roundStarter }

func (g *Game) DeckCount() int { return g.stock.Count() }

func (g *Game) Hand(seat int) []deck.Card {
	return slices.Clone(g.hands[seat])
}

func (g *Game) HandSizes() []int {
	sizes := make([]int, len(g.hands))
	for seat, hand := range g.hands {
		sizes[seat] = len(hand)
	}
	return sizes
}

func (g *Game) DiscardPile() []deck.Card {
	return slices.Clone(g.discardPile)
}

func (g *Game) DiscardTop() *deck.Card {
	if len(g.discardPile) == 0 {
		return nil
	}
	card := g.discardPile[len(g.discardPile)-1]
	return &card
}

// DiscardSecond returns the card under the top one; clients draw the frozen
// pile indicator from it.
func (g *Game) DiscardSecond() *deck.Card {
	if len(g.discardPile) < 2 {
		return nil
	}
	card := g.discardPile[len(g.discardPile)-2]
	return &card
}

func (g *Game) TeamMelds(team int) map[deck.Rank][]deck.Card {
	melds := make(map[deck.Rank][]deck.Card, len(g.melds[team]))
	for rank, pile := range g.melds[team] {
		melds[rank] = slices.Clone(pile)
	}
	return melds
}

func (g *Game) RedThrees(team int) []deck.Card {
	return slices.Clone(g.redThrees[team])
}

func (g *Game) TeamCanastaCount(team int) int { return g.canastaCount(team) }

func (g *Game) TeamHasOpened(team int) bool { return g.hasOpened(team) }

func (g *Game) PileFrozenFor(team int) bool { return g.pileFrozen(team) }

func (g *Game) CumulativeScores() []int {
	return slices.Clone(g.cumulativeScores)
}

// FinalScores is nil until the round reaches game_over.
func (g *Game) FinalScores() []TeamScore {
	return slices.Clone(g.finalScores)
}
