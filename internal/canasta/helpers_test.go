package canasta

import (
	"math/rand"

	"canasta-arena/internal/deck"
)

// testGame deals a deterministic game; tests then overwrite the state they
// care about directly.
func testGame(opts Options) *Game {
	return NewGame(opts, WithRand(rand.New(rand.NewSource(7))))
}

func card(suit deck.Suit, rank deck.Rank) deck.Card {
	return deck.Card{Suit: suit, Rank: rank}
}

func rankPtr(rank deck.Rank) *deck.Rank {
	return &rank
}

// cards builds n copies of the same card. Duplicates are legal in a
// two-deck game.
func cards(n int, suit deck.Suit, rank deck.Rank) []deck.Card {
	out := make([]deck.Card, n)
	for i := range out {
		out[i] = card(suit, rank)
	}
	return out
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// totalCards counts every card the engine tracks; it must always be 108.
func totalCards(g *Game) int {
	total := g.stock.Count() + len(g.discardPile)
	for _, hand := range g.hands {
		total += len(hand)
	}
	for team := range g.melds {
		for _, pile := range g.melds[team] {
			total += len(pile)
		}
		total += len(g.redThrees[team])
	}
	return total
}
