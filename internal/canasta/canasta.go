package canasta

import (
	"math/rand"
	"slices"
	"time"

	"canasta-arena/internal/deck"
)

type Phase string

const (
	PhaseDrawing  Phase = "draw"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "game_over"
)

// Sentinel messages on successful actions that end the round. The caller
// uses these to trigger the score broadcast.
const (
	MsgGameOver          = "GAME_OVER"
	MsgGameOverDeckEmpty = "GAME_OVER_DECK_EMPTY"
)

// Result is the outcome of a single action. Illegal actions come back as
// Success=false with a client-facing message; they never mutate state.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok() Result              { return Result{Success: true} }
func okMsg(msg string) Result { return Result{Success: true, Message: msg} }
func fail(msg string) Result  { return Result{Success: false, Message: msg} }

// Options fixes the rule variant for the lifetime of a match.
type Options struct {
	WinScore       int `json:"winScore"`
	MinCanastasOut int `json:"minCanastasOut"`
	DrawCount      int `json:"drawCount"`
	HandSize       int `json:"handSize"`
	PlayerCount    int `json:"playerCount"`
}

func DefaultOptions() Options {
	return Options{
		WinScore:       5000,
		MinCanastasOut: 2,
		DrawCount:      2,
		HandSize:       11,
		PlayerCount:    4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WinScore <= 0 {
		o.WinScore = d.WinScore
	}
	if o.MinCanastasOut <= 0 {
		o.MinCanastasOut = d.MinCanastasOut
	}
	if o.DrawCount <= 0 {
		o.DrawCount = d.DrawCount
	}
	if o.HandSize <= 0 {
		o.HandSize = d.HandSize
	}
	if o.PlayerCount != 2 && o.PlayerCount != 4 {
		o.PlayerCount = d.PlayerCount
	}
	return o
}

// TeamScore is the per-team point breakdown computed at round end.
type TeamScore struct {
	Base           int `json:"base"`
	CanastaBonus   int `json:"canastaBonus"`
	RedThreePoints int `json:"redThreePoints"`
	Deductions     int `json:"deductions"`
	GoOutBonus     int `json:"goOutBonus"`
	Total          int `json:"total"`
}

// Game owns all round and match state. All mutation goes through the action
// methods; accessors hand out copies only. Callers must serialize calls per
// instance.
type Game struct {
	opts   Options
	rng    *rand.Rand
	teamOf []int

	stock       *deck.Deck
	discardPile []deck.Card
	hands       [][]deck.Card
	melds       []map[deck.Rank][]deck.Card
	redThrees   [][]deck.Card

	currentPlayer    int
	phase            Phase
	roundStarter     int
	wentOutSeat      int
	wentOutConcealed bool

	cumulativeScores []int
	finalScores      []TeamScore
	scoresCommitted  bool
}

type GameOption func(*Game)

// WithRand injects the random source. Used by tests and replay tooling to
// get deterministic shuffles.
func WithRand(rng *rand.Rand) GameOption {
	return func(g *Game) { g.rng = rng }
}

func NewGame(opts Options, gameOpts ...GameOption) *Game {
	opts = opts.withDefaults()

	// Seat to team lookup: head-to-head in 2-player, partners sit across
	// in 4-player.
	teamOf := make([]int, opts.PlayerCount)
	for seat := range teamOf {
		if opts.PlayerCount == 2 {
			teamOf[seat] = seat
		} else {
			teamOf[seat] = seat % 2
		}
	}

	g := &Game{
		opts:             opts,
		teamOf:           teamOf,
		cumulativeScores: make([]int, 2),
		wentOutSeat:      -1,
	}

	for _, opt := range gameOpts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g.beginRound()
	return g
}

// ResetMatch zeroes the cumulative scores and deals a fresh round.
func (g *Game) ResetMatch() {
	g.cumulativeScores = make([]int, 2)
	g.roundStarter = 0
	g.beginRound()
}

// StartNextRound rotates the dealer and deals. Rejected once the match has
// been decided.
func (g *Game) StartNextRound() Result {
	if g.phase != PhaseGameOver {
		return fail("ROUND_IN_PROGRESS: Current round has not ended")
	}
	if st := g.ResolveMatchStatus(); st.MatchOver {
		return fail("MATCH_OVER: Match has been decided, reset to play again")
	}
	g.roundStarter = (g.roundStarter + 1) % g.opts.PlayerCount
	g.beginRound()
	return ok()
}

func (g *Game) beginRound() {
	g.stock = deck.New()
	g.stock.Shuffle(g.rng)
	g.discardPile = nil

	g.hands = make([][]deck.Card, g.opts.PlayerCount)
	g.melds = []map[deck.Rank][]deck.Card{
		make(map[deck.Rank][]deck.Card),
		make(map[deck.Rank][]deck.Card),
	}
	g.redThrees = [][]deck.Card{{}, {}}

	for seat := range g.hands {
		g.drawInto(seat, g.opts.HandSize)
		g.sortHand(seat)
	}

	// Seed the discard pile. A wild or red three gets covered by the next
	// flip and stays in the pile, so the 108-card total is preserved; a
	// buried wild simply leaves the pile frozen.
	for {
		flipped := g.stock.Draw(1)
		if len(flipped) == 0 {
			break
		}
		g.discardPile = append(g.discardPile, flipped[0])
		if !flipped[0].IsWild() && !flipped[0].IsRedThree() {
			break
		}
	}

	g.currentPlayer = g.roundStarter
	g.phase = PhaseDrawing
	g.wentOutSeat = -1
	g.wentOutConcealed = false
	g.finalScores = nil
	g.scoresCommitted = false
}

// drawInto draws until count non-red-three cards land in the seat's hand or
// the stock runs dry. Red threes are side-tracked to the team pool and do
// not count against the draw.
func (g *Game) drawInto(seat, count int) (added int) {
	team := g.teamOf[seat]
	for added < count {
		drawn := g.stock.Draw(1)
		if len(drawn) == 0 {
			return
		}
		card := drawn[0]
		if card.IsRedThree() {
			g.redThrees[team] = append(g.redThrees[team], card)
			continue
		}
		g.hands[seat] = append(g.hands[seat], card)
		added++
	}
	return
}

func (g *Game) sortHand(seat int) {
	slices.SortFunc(g.hands[seat], func(a, b deck.Card) int {
		if deck.Less(a, b) {
			return -1
		}
		if deck.Less(b, a) {
			return 1
		}
		return 0
	})
}

func (g *Game) canastaCount(team int) (count int) {
	for _, pile := range g.melds[team] {
		if len(pile) >= 7 {
			count++
		}
	}
	return
}

func (g *Game) hasOpened(team int) bool {
	return len(g.melds[team]) > 0
}

// pileFrozen reports whether the discard pile is frozen for a team: the team
// has not opened, or a wild sits anywhere in the pile.
func (g *Game) pileFrozen(team int) bool {
	return !g.hasOpened(team) || deck.WildCount(g.discardPile) > 0
}

// openingRequirement scales the first-meld threshold with cumulative score.
func openingRequirement(cumulative int) int {
	switch {
	case cumulative < 0:
		return 15
	case cumulative < 1500:
		return 50
	case cumulative < 3000:
		return 90
	default:
		return 120
	}
}

func (g *Game) requireTurn(seat int, phase Phase) (Result, bool) {
	if seat != g.currentPlayer {
		return fail("NOT_YOUR_TURN: Waiting on another seat"), false
	}
	if g.phase != phase {
		return fail("WRONG_PHASE: Action not legal in the " + string(g.phase) + " phase"), false
	}
	return Result{}, true
}

// removeFromHand removes the cards at the given hand indices, preserving the
// order of the rest. Indices must be pre-validated.
func (g *Game) removeFromHand(seat int, indices []int) []deck.Card {
	removed := make([]deck.Card, 0, len(indices))
	for _, i := range indices {
		removed = append(removed, g.hands[seat][i])
	}
	sorted := slices.Clone(indices)
	slices.SortFunc(sorted, func(a, b int) int { return b - a })
	for _, i := range sorted {
		g.hands[seat] = slices.Delete(g.hands[seat], i, i+1)
	}
	return removed
}

func validIndices(indices []int, handLen int) bool {
	if len(indices) == 0 {
		return false
	}
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= handLen || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
