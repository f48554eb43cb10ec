package canasta

import (
	"strings"
	"testing"

	"canasta-arena/internal/deck"
)

func assertRejected(t *testing.T, res Result, codePrefix string) {
	t.Helper()
	if res.Success {
		t.Fatalf("expected rejection %s, got success", codePrefix)
	}
	if !strings.HasPrefix(res.Message, codePrefix) {
		t.Fatalf("expected message with prefix %q, got %q", codePrefix, res.Message)
	}
}

func assertAccepted(t *testing.T, res Result) {
	t.Helper()
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
}

func TestDrawRejectsWrongSeat(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})

	seat := (g.currentPlayer + 1) % 2
	assertRejected(t, g.DrawFromDeck(seat), "NOT_YOUR_TURN")
}

func TestDrawRejectsWrongPhase(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})
	g.phase = PhasePlaying

	assertRejected(t, g.DrawFromDeck(g.currentPlayer), "WRONG_PHASE")
}

func TestDrawAdvancesToPlaying(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})
	g.stock = &deck.Deck{Cards: []deck.Card{
		card(deck.Clubs, deck.Four),
		card(deck.Clubs, deck.Nine),
		card(deck.Spades, deck.King),
	}}
	seat := g.currentPlayer
	before := len(g.hands[seat])

	assertAccepted(t, g.DrawFromDeck(seat))

	if got := len(g.hands[seat]); got != before+g.opts.DrawCount {
		t.Errorf("hand size = %d, want %d", got, before+g.opts.DrawCount)
	}
	if g.phase != PhasePlaying {
		t.Errorf("phase = %s, want %s", g.phase, PhasePlaying)
	}
	if g.currentPlayer != seat {
		t.Errorf("turn passed on draw, currentPlayer = %d", g.currentPlayer)
	}
}

// Drawing two with red threes interleaved: each red three goes to the team
// pool and is replaced, so the hand still grows by the draw count.
func TestDrawDivertsRedThrees(t *testing.T) {
	g := testGame(Options{PlayerCount: 2, DrawCount: 2})
	seat := g.currentPlayer
	g.redThrees = [][]deck.Card{{}, {}}

	// Draw pops from the tail, so the last card listed comes off first.
	g.stock = &deck.Deck{Cards: []deck.Card{
		card(deck.Clubs, deck.Four),
		card(deck.Clubs, deck.Four),
		card(deck.Spades, deck.Eight),
		card(deck.Diamonds, deck.Three),
		card(deck.Clubs, deck.Five),
		card(deck.Hearts, deck.Three),
	}}
	before := len(g.hands[seat])

	assertAccepted(t, g.DrawFromDeck(seat))

	if got := len(g.hands[seat]); got != before+2 {
		t.Errorf("hand size = %d, want %d", got, before+2)
	}
	team := g.teamOf[seat]
	if got := len(g.redThrees[team]); got != 2 {
		t.Errorf("red three pool = %d, want 2", got)
	}
	if got := g.stock.Count(); got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
}

func TestDrawFromEmptyDeckEndsRound(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})
	g.stock = &deck.Deck{}
	seat := g.currentPlayer

	res := g.DrawFromDeck(seat)
	if !res.Success || res.Message != MsgGameOverDeckEmpty {
		t.Fatalf("result = %+v, want success with %q", res, MsgGameOverDeckEmpty)
	}
	if g.phase != PhaseGameOver {
		t.Errorf("phase = %s, want %s", g.phase, PhaseGameOver)
	}
	if len(g.finalScores) != 2 {
		t.Errorf("final scores not computed: %v", g.finalScores)
	}
	if g.wentOutSeat != -1 {
		t.Errorf("wentOutSeat = %d, want -1 on deck exhaustion", g.wentOutSeat)
	}
}

func TestDrawRunningDryMidDrawEndsRound(t *testing.T) {
	g := testGame(Options{PlayerCount: 2, DrawCount: 2})
	g.stock = &deck.Deck{Cards: []deck.Card{card(deck.Clubs, deck.Nine)}}
	seat := g.currentPlayer
	before := len(g.hands[seat])

	res := g.DrawFromDeck(seat)
	if !res.Success || res.Message != MsgGameOverDeckEmpty {
		t.Fatalf("result = %+v, want success with %q", res, MsgGameOverDeckEmpty)
	}
	// The partial draw is kept.
	if got := len(g.hands[seat]); got != before+1 {
		t.Errorf("hand size = %d, want %d", got, before+1)
	}
}

func TestDiscardPassesTurn(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})
	seat := g.currentPlayer
	g.phase = PhasePlaying
	g.hands[seat] = []deck.Card{
		card(deck.Spades, deck.King),
		card(deck.Clubs, deck.Nine),
	}

	assertAccepted(t, g.DiscardFromHand(seat, 0))

	if top := g.discardPile[len(g.discardPile)-1]; top != card(deck.Spades, deck.King) {
		t.Errorf("pile top = %v, want King of Spades", top)
	}
	if g.phase != PhaseDrawing {
		t.Errorf("phase = %s, want %s", g.phase, PhaseDrawing)
	}
	if want := (seat + 1) % 2; g.currentPlayer != want {
		t.Errorf("currentPlayer = %d, want %d", g.currentPlayer, want)
	}
	if len(g.hands[seat]) != 1 {
		t.Errorf("hand size = %d, want 1", len(g.hands[seat]))
	}
}

func TestDiscardRejectsBadIndex(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})
	seat := g.currentPlayer
	g.phase = PhasePlaying

	assertRejected(t, g.DiscardFromHand(seat, len(g.hands[seat])), "BAD_SELECTION")
	assertRejected(t, g.DiscardFromHand(seat, -1), "BAD_SELECTION")
}

func TestDiscardLastCardNeedsCanastas(t *testing.T) {
	g := testGame(Options{PlayerCount: 2, MinCanastasOut: 2})
	seat := g.currentPlayer
	team := g.teamOf[seat]
	g.phase = PhasePlaying
	g.hands[seat] = []deck.Card{card(deck.Spades, deck.King)}

	assertRejected(t, g.DiscardFromHand(seat, 0), "CANASTA_FLOOR")

	g.melds[team][deck.Seven] = cards(7, deck.Clubs, deck.Seven)
	g.melds[team][deck.Nine] = cards(7, deck.Hearts, deck.Nine)

	res := g.DiscardFromHand(seat, 0)
	if !res.Success || res.Message != MsgGameOver {
		t.Fatalf("result = %+v, want success with %q", res, MsgGameOver)
	}
	if g.wentOutSeat != seat {
		t.Errorf("wentOutSeat = %d, want %d", g.wentOutSeat, seat)
	}
	if g.finalScores[team].GoOutBonus != 100 {
		t.Errorf("go-out bonus = %d, want 100", g.finalScores[team].GoOutBonus)
	}
}

func TestFailedActionDoesNotMutate(t *testing.T) {
	g := testGame(Options{PlayerCount: 2})
	seat := g.currentPlayer
	handBefore := len(g.hands[seat])
	stockBefore := g.stock.Count()
	pileBefore := len(g.discardPile)

	g.MeldCards(seat, []int{0, 1}, nil) // wrong phase
	g.DiscardFromHand(seat, 0)          // wrong phase
	g.DrawFromDeck((seat + 1) % 2)      // wrong seat

	if len(g.hands[seat]) != handBefore || g.stock.Count() != stockBefore || len(g.discardPile) != pileBefore {
		t.Error("rejected actions mutated game state")
	}
	if g.phase != PhaseDrawing {
		t.Errorf("phase = %s, want %s", g.phase, PhaseDrawing)
	}
}
