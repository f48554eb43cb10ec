package canasta

import (
	"fmt"

	"canasta-arena/internal/deck"
)

type MoveType string

const (
	// Draw phase
	MoveDrawFromDeck      MoveType = "draw_from_deck"
	MovePickupDiscardPile MoveType = "pickup_discard_pile"

	// Play phase
	MoveMeldCards      MoveType = "meld_cards"
	MoveProcessOpening MoveType = "process_opening"

	// End phase
	MoveDiscard MoveType = "discard"
)

// Move is the wire-level action descriptor the transport layer feeds in.
type Move struct {
	Type       MoveType       `json:"type"`
	CardIndex  int            `json:"cardIndex"`
	Indices    []int          `json:"indices,omitempty"`
	Rank       *deck.Rank     `json:"rank,omitempty"`
	Melds      []ProposedMeld `json:"melds,omitempty"`
	WantPickup bool           `json:"wantPickup"`
}

// Execute dispatches a move to the matching action method.
func (g *Game) Execute(seat int, move Move) Result {
	if seat < 0 || seat >= g.opts.PlayerCount {
		return fail("BAD_SEAT: Seat out of range")
	}

	switch move.Type {
	case MoveDrawFromDeck:
		return g.DrawFromDeck(seat)
	case MovePickupDiscardPile:
		return g.PickupDiscardPile(seat)
	case MoveMeldCards:
		return g.MeldCards(seat, move.Indices, move.Rank)
	case MoveProcessOpening:
		return g.ProcessOpening(seat, move.Melds, move.WantPickup)
	case MoveDiscard:
		return g.DiscardFromHand(seat, move.CardIndex)
	default:
		return fail(fmt.Sprintf("INVALID_MOVE: Unknown move type '%s'", move.Type))
	}
}
