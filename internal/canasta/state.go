package canasta

import (
	"encoding/json"
	"math/rand"
	"time"

	"canasta-arena/internal/deck"
)

// gameState is the serialized form of a Game. Only the persistence layer
// sees it; client snapshots go through ClientState instead.
type gameState struct {
	Options          Options                     `json:"options"`
	Stock            []deck.Card                 `json:"stock"`
	DiscardPile      []deck.Card                 `json:"discardPile"`
	Hands            [][]deck.Card               `json:"hands"`
	Melds            []map[deck.Rank][]deck.Card `json:"melds"`
	RedThrees        [][]deck.Card               `json:"redThrees"`
	CurrentPlayer    int                         `json:"currentPlayer"`
	Phase            Phase                       `json:"phase"`
	RoundStarter     int                         `json:"roundStarter"`
	WentOutSeat      int                         `json:"wentOutSeat"`
	WentOutConcealed bool                        `json:"wentOutConcealed"`
	CumulativeScores []int                       `json:"cumulativeScores"`
	FinalScores      []TeamScore                 `json:"finalScores,omitempty"`
	ScoresCommitted  bool                        `json:"scoresCommitted"`
}

func (g *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameState{
		Options:          g.opts,
		Stock:            g.stock.Cards,
		DiscardPile:      g.discardPile,
		Hands:            g.hands,
		Melds:            g.melds,
		RedThrees:        g.redThrees,
		CurrentPlayer:    g.currentPlayer,
		Phase:            g.phase,
		RoundStarter:     g.roundStarter,
		WentOutSeat:      g.wentOutSeat,
		WentOutConcealed: g.wentOutConcealed,
		CumulativeScores: g.cumulativeScores,
		FinalScores:      g.finalScores,
		ScoresCommitted:  g.scoresCommitted,
	})
}

func (g *Game) UnmarshalJSON(data []byte) error {
	var st gameState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}

	opts := st.Options.withDefaults()
	teamOf := make([]int, opts.PlayerCount)
	for seat := range teamOf {
		if opts.PlayerCount == 2 {
			teamOf[seat] = seat
		} else {
			teamOf[seat] = seat % 2
		}
	}

	g.opts = opts
	g.teamOf = teamOf
	g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	g.stock = &deck.Deck{Cards: st.Stock}
	g.discardPile = st.DiscardPile
	g.hands = st.Hands
	g.melds = st.Melds
	g.redThrees = st.RedThrees
	g.currentPlayer = st.CurrentPlayer
	g.phase = st.Phase
	g.roundStarter = st.RoundStarter
	g.wentOutSeat = st.WentOutSeat
	g.wentOutConcealed = st.WentOutConcealed
	g.cumulativeScores = st.CumulativeScores
	g.finalScores = st.FinalScores
	g.scoresCommitted = st.ScoresCommitted
	return nil
}
