package canasta

import (
	"fmt"

	"canasta-arena/internal/deck"
)

/*
 * Draw Phase
 */

// DrawFromDeck draws the configured number of cards into the seat's hand.
// Red threes are diverted to the team pool and replaced. An empty stock ends
// the round with the deck-empty sentinel.
func (g *Game) DrawFromDeck(seat int) Result {
	if r, pass := g.requireTurn(seat, PhaseDrawing); !pass {
		return r
	}

	if g.stock.Count() == 0 {
		g.endRound()
		return okMsg(MsgGameOverDeckEmpty)
	}

	added := g.drawInto(seat, g.opts.DrawCount)
	g.sortHand(seat)

	// Running dry mid-draw is the same terminal transition, with the
	// partial draw kept.
	if added < g.opts.DrawCount && g.stock.Count() == 0 {
		g.endRound()
		return okMsg(MsgGameOverDeckEmpty)
	}

	g.phase = PhasePlaying
	return ok()
}

// PickupDiscardPile claims the entire discard pile. The top card must be
// meldable immediately: against an existing meld of its rank (unfrozen pile
// only), with two naturals from hand, or with a natural plus a wild when the
// pile is not frozen.
func (g *Game) PickupDiscardPile(seat int) Result {
	if r, pass := g.requireTurn(seat, PhaseDrawing); !pass {
		return r
	}
	if len(g.discardPile) == 0 {
		return fail("EMPTY_PILE: Discard pile is empty")
	}

	top := g.discardPile[len(g.discardPile)-1]
	if top.IsWild() {
		return fail("PILE_BLOCKED: Cannot pick up the pile with a wild card on top")
	}
	if top.Rank == deck.Three {
		return fail("PILE_BLOCKED: Cannot pick up the pile with a three on top")
	}

	team := g.teamOf[seat]
	hand := g.hands[seat]
	opened := g.hasOpened(team)
	frozen := g.pileFrozen(team)

	var naturals, wilds []int
	for i, card := range hand {
		switch {
		case card.Rank == top.Rank && !card.IsWild():
			naturals = append(naturals, i)
		case card.Rank == deck.Two:
			wilds = append(wilds, i)
		}
	}
	// Jokers after twos, so the cheaper wild is spent on a mixed claim.
	for i, card := range hand {
		if card.Rank == deck.Joker {
			wilds = append(wilds, i)
		}
	}

	existing := g.melds[team][top.Rank]

	var claim []int
	switch {
	case opened && deck.WildCount(g.discardPile) == 0 && existing != nil:
		// Table pickup: the meld itself justifies the claim.
	case len(naturals) >= 2:
		claim = naturals[:2]
	case !frozen && len(naturals) >= 1 && len(wilds) >= 1:
		claim = []int{naturals[0], wilds[0]}
	default:
		if frozen {
			return fail(fmt.Sprintf("PILE_FROZEN: Pile is frozen, need two natural %ss to claim it", top.Rank))
		}
		return fail("NO_MATCH: No valid combination in hand to claim the pile")
	}

	claimCards := make([]deck.Card, 0, len(claim))
	for _, i := range claim {
		claimCards = append(claimCards, hand[i])
	}

	if !opened {
		points := top.Value() + deck.Points(claimCards)
		required := openingRequirement(g.cumulativeScores[team])
		if points < required {
			return fail(fmt.Sprintf(
				"OPENING_SHORT: Need %d points to open, the claim is worth %d; use a staged opening to combine melds",
				required, points))
		}
	}

	resulting := len(existing) + len(claim) + 1
	if resulting >= 7 && naturalCount(existing)+len(claim)+1-deck.WildCount(claimCards) < 4 {
		return fail("CANASTA_NATURALS: A canasta needs at least four natural cards")
	}

	canastasAfter := g.canastaCount(team)
	if len(existing) < 7 && resulting >= 7 {
		canastasAfter++
	}

	// Floating guard: claiming must leave enough cards to keep playing
	// unless the team is already entitled to go out.
	handAfter := len(hand) - len(claim) + len(g.discardPile) - 1
	if handAfter <= 1 && canastasAfter < g.opts.MinCanastasOut {
		return fail(fmt.Sprintf("CANASTA_FLOOR: Need %d canastas to go out", g.opts.MinCanastasOut))
	}

	// All checks passed; mutate.
	g.removeFromHand(seat, claim)
	g.melds[team][top.Rank] = append(existing, append(claimCards, top)...)

	rest := g.discardPile[:len(g.discardPile)-1]
	g.discardPile = nil
	redThrees := 0
	for _, card := range rest {
		if card.IsRedThree() {
			g.redThrees[team] = append(g.redThrees[team], card)
			redThrees++
			continue
		}
		g.hands[seat] = append(g.hands[seat], card)
	}
	g.drawInto(seat, redThrees)
	g.sortHand(seat)

	if len(g.hands[seat]) == 0 {
		g.wentOutSeat = seat
		g.endRound()
		return okMsg(MsgGameOver)
	}

	g.phase = PhasePlaying
	return ok()
}

/*
 * Play Phase
 */

// MeldCards lays the selected hand cards onto the team meld of the resolved
// rank, creating it if needed. targetRank is required when every selected
// card is wild.
func (g *Game) MeldCards(seat int, indices []int, targetRank *deck.Rank) Result {
	if r, pass := g.requireTurn(seat, PhasePlaying); !pass {
		return r
	}
	hand := g.hands[seat]
	if !validIndices(indices, len(hand)) {
		return fail("BAD_SELECTION: Invalid or repeated card selection")
	}

	cards := make([]deck.Card, 0, len(indices))
	for _, i := range indices {
		cards = append(cards, hand[i])
	}

	rank, res := resolveRank(cards, targetRank)
	if !res.Success {
		return res
	}

	team := g.teamOf[seat]

	if rank == deck.Three {
		return g.meldBlackThrees(seat, team, indices, cards)
	}

	existing := g.melds[team][rank]
	if existing == nil && len(cards) < 3 {
		return fail("MELD_SIZE: A new meld needs at least three cards")
	}
	for _, card := range cards {
		if !card.IsWild() && card.Rank != rank {
			return fail("MIXED_RANKS: All cards must match the meld rank or be wild")
		}
	}

	resulting := len(existing) + len(cards)
	if resulting >= 7 && naturalCount(existing)+naturalCount(cards) < 4 {
		return fail("CANASTA_NATURALS: A canasta needs at least four natural cards")
	}

	canastasAfter := g.canastaCount(team)
	if len(existing) < 7 && resulting >= 7 {
		canastasAfter++
	}
	remaining := len(hand) - len(cards)
	if remaining <= 1 && canastasAfter < g.opts.MinCanastasOut {
		return fail(fmt.Sprintf("CANASTA_FLOOR: Need %d canastas to go out", g.opts.MinCanastasOut))
	}

	if !g.hasOpened(team) {
		required := openingRequirement(g.cumulativeScores[team])
		if points := deck.Points(cards); points < required {
			return fail(fmt.Sprintf("OPENING_SHORT: Need %d points to open, the meld is worth %d", required, points))
		}
	}

	g.removeFromHand(seat, indices)
	g.melds[team][rank] = append(existing, cards...)
	g.sortHand(seat)

	if len(g.hands[seat]) == 0 {
		g.wentOutSeat = seat
		g.endRound()
		return okMsg(MsgGameOver)
	}
	return ok()
}

// meldBlackThrees handles the terminal black-three meld: wilds never mix in,
// and it is only legal as the move that goes out.
func (g *Game) meldBlackThrees(seat, team int, indices []int, cards []deck.Card) Result {
	for _, card := range cards {
		if card.Rank != deck.Three {
			return fail("MIXED_RANKS: Black threes meld only with black threes")
		}
	}
	if len(indices) != len(g.hands[seat]) {
		return fail("BLACK_THREES: Black threes may only be melded when going out")
	}
	if g.canastaCount(team) < g.opts.MinCanastasOut {
		return fail(fmt.Sprintf("CANASTA_FLOOR: Need %d canastas to go out", g.opts.MinCanastasOut))
	}

	g.removeFromHand(seat, indices)
	g.melds[team][deck.Three] = append(g.melds[team][deck.Three], cards...)

	g.wentOutSeat = seat
	g.endRound()
	return okMsg(MsgGameOver)
}

/*
 * End Phase
 */

// DiscardFromHand moves one card to the pile and passes the turn. Discarding
// the last card goes out, which needs the team's canastas in place.
func (g *Game) DiscardFromHand(seat, index int) Result {
	if r, pass := g.requireTurn(seat, PhasePlaying); !pass {
		return r
	}
	hand := g.hands[seat]
	if index < 0 || index >= len(hand) {
		return fail("BAD_SELECTION: Card index out of range")
	}

	team := g.teamOf[seat]
	if len(hand) == 1 && g.canastaCount(team) < g.opts.MinCanastasOut {
		return fail(fmt.Sprintf("CANASTA_FLOOR: Need %d canastas to go out", g.opts.MinCanastasOut))
	}

	card := hand[index]
	g.removeFromHand(seat, []int{index})
	g.discardPile = append(g.discardPile, card)

	if len(g.hands[seat]) == 0 {
		g.wentOutSeat = seat
		g.endRound()
		return okMsg(MsgGameOver)
	}

	g.phase = PhaseDrawing
	g.currentPlayer = (g.currentPlayer + 1) % g.opts.PlayerCount
	return ok()
}

func naturalCount(cards []deck.Card) (count int) {
	for _, card := range cards {
		if !card.IsWild() {
			count++
		}
	}
	return
}

// resolveRank picks the meld rank: the explicit target if given, otherwise
// the first non-wild card.
func resolveRank(cards []deck.Card, target *deck.Rank) (deck.Rank, Result) {
	if target != nil {
		return *target, ok()
	}
	for _, card := range cards {
		if !card.IsWild() {
			return card.Rank, ok()
		}
	}
	return 0, fail("RANK_REQUIRED: An all-wild meld needs an explicit target rank")
}
