package canasta

import (
	"fmt"

	"canasta-arena/internal/deck"
)

// ProposedMeld is one meld inside a staged opening. Rank is required when
// every selected card is wild.
type ProposedMeld struct {
	Indices []int      `json:"indices"`
	Rank    *deck.Rank `json:"rank,omitempty"`
}

// ProcessOpening validates and applies several simultaneous new melds as one
// transaction, optionally anchored on a discard-pile pickup as the first
// meld. Used when no single meld reaches the opening threshold. Either
// everything applies or nothing does.
func (g *Game) ProcessOpening(seat int, proposed []ProposedMeld, wantPickup bool) Result {
	phase := PhasePlaying
	if wantPickup {
		// The pickup replaces the draw.
		phase = PhaseDrawing
	}
	if r, pass := g.requireTurn(seat, phase); !pass {
		return r
	}

	team := g.teamOf[seat]
	if g.hasOpened(team) {
		return fail("ALREADY_OPEN: Team has opened, meld cards directly")
	}
	if len(proposed) == 0 {
		return fail("BAD_SELECTION: A staged opening needs at least one meld")
	}

	hand := g.hands[seat]

	var top deck.Card
	if wantPickup {
		if len(g.discardPile) == 0 {
			return fail("EMPTY_PILE: Discard pile is empty")
		}
		top = g.discardPile[len(g.discardPile)-1]
		if top.IsWild() {
			return fail("PILE_BLOCKED: Cannot pick up the pile with a wild card on top")
		}
		if top.Rank == deck.Three {
			return fail("PILE_BLOCKED: Cannot pick up the pile with a three on top")
		}
	}

	// No hand index may serve two melds.
	used := make(map[int]bool)
	staged := make(map[deck.Rank][]deck.Card, len(proposed))
	totalPoints := 0
	usedCount := 0

	for i, pm := range proposed {
		minSize := 3
		anchored := wantPickup && i == 0
		if anchored {
			minSize = 2
		}
		if len(pm.Indices) < minSize {
			return fail(fmt.Sprintf("MELD_SIZE: Meld %d needs at least %d cards", i+1, minSize))
		}
		if !validIndices(pm.Indices, len(hand)) {
			return fail("BAD_SELECTION: Invalid or repeated card selection")
		}
		for _, idx := range pm.Indices {
			if used[idx] {
				return fail("BAD_SELECTION: A card cannot be used in two melds")
			}
			used[idx] = true
		}
		usedCount += len(pm.Indices)

		cards := make([]deck.Card, 0, len(pm.Indices)+1)
		for _, idx := range pm.Indices {
			cards = append(cards, hand[idx])
		}

		rank, res := resolveRank(cards, pm.Rank)
		if !res.Success {
			return res
		}
		if rank == deck.Three {
			return fail("BLACK_THREES: Black threes cannot be part of an opening")
		}
		if anchored && rank != top.Rank {
			return fail(fmt.Sprintf("MELD_MISMATCH: The pickup meld must be %ss to match the pile", top.Rank))
		}
		for _, card := range cards {
			if !card.IsWild() && card.Rank != rank {
				return fail("MIXED_RANKS: All cards must match the meld rank or be wild")
			}
		}
		if anchored {
			cards = append(cards, top)
			// An unopened team always faces a frozen pile: two
			// naturals from hand must back the claim.
			if naturalCount(cards)-1 < 2 {
				return fail(fmt.Sprintf("PILE_FROZEN: Pile is frozen, need two natural %ss to claim it", top.Rank))
			}
		}
		if deck.WildCount(cards) > len(cards)-2 {
			return fail("WILD_RATIO: Wild cards must stay in the minority of a meld")
		}
		if len(cards) >= 7 && naturalCount(cards) < 4 {
			return fail("CANASTA_NATURALS: A canasta needs at least four natural cards")
		}
		if _, dup := staged[rank]; dup {
			return fail("DUPLICATE_RANK: Combine cards of one rank into a single meld")
		}
		staged[rank] = cards
		totalPoints += deck.Points(cards)
	}

	required := openingRequirement(g.cumulativeScores[team])
	if totalPoints < required {
		return fail(fmt.Sprintf("OPENING_SHORT: Need %d points to open, staged %d", required, totalPoints))
	}

	canastasAfter := 0
	for _, cards := range staged {
		if len(cards) >= 7 {
			canastasAfter++
		}
	}
	handAfter := len(hand) - usedCount
	if wantPickup {
		handAfter += len(g.discardPile) - 1
	}
	if handAfter <= 1 && canastasAfter < g.opts.MinCanastasOut {
		return fail(fmt.Sprintf("CANASTA_FLOOR: Need %d canastas to go out", g.opts.MinCanastasOut))
	}

	// Validation complete; apply the whole transaction.
	usedIndices := make([]int, 0, usedCount)
	for idx := range used {
		usedIndices = append(usedIndices, idx)
	}
	g.removeFromHand(seat, usedIndices)
	for rank, cards := range staged {
		g.melds[team][rank] = cards
	}

	if wantPickup {
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
	}
	g.sortHand(seat)

	if len(g.hands[seat]) == 0 {
		// Going out inside the opening itself is the concealed path.
		g.wentOutSeat = seat
		g.wentOutConcealed = true
		g.endRound()
		return okMsg(MsgGameOver)
	}

	g.phase = PhasePlaying
	return ok()
}
