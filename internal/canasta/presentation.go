package canasta

import "canasta-arena/internal/deck"

// ClientState is the per-seat projection sent over the wire. Other hands are
// lengths only and the stock is a count; nothing here can leak cards a seat
// has not seen.
type ClientState struct {
	Seat           int                    `json:"seat"`
	Team           int                    `json:"team"`
	Hand           []deck.Card            `json:"hand"`
	Players        []OtherPlayerState     `json:"players"`
	DeckCount      int                    `json:"deckCount"`
	DiscardCount   int                    `json:"discardCount"`
	DiscardTop     *deck.Card             `json:"discardTop"` // nil when the pile is empty
	DiscardSecond  *deck.Card             `json:"discardSecond"`
	PileFrozen     bool                   `json:"pileFrozen"`
	OurMelds       map[string][]deck.Card `json:"ourMelds"`
	OurRedThrees   []deck.Card            `json:"ourRedThrees"`
	OurCanastas    int                    `json:"ourCanastas"`
	OurScore       int                    `json:"ourScore"`
	OtherMelds     map[string][]deck.Card `json:"otherMelds"`
	OtherRedThrees []deck.Card            `json:"otherRedThrees"`
	OtherCanastas  int                    `json:"otherCanastas"`
	OtherScore     int                    `json:"otherScore"`
	CurrentPlayer  int                    `json:"currentPlayer"`
	Phase          Phase                  `json:"phase"`
	FinalScores    []TeamScore            `json:"finalScores,omitempty"`
}

type OtherPlayerState struct {
	Seat       int `json:"seat"`
	Team       int `json:"team"`
	HandLength int `json:"handLength"`
}

func (g *Game) GetClientState(seat int) *ClientState {
	team := g.teamOf[seat]
	other := 1 - team

	others := []OtherPlayerState{}
	for s := range g.hands {
		if s != seat {
			others = append(others, OtherPlayerState{
				Seat:       s,
				Team:       g.teamOf[s],
				HandLength: len(g.hands[s]),
			})
		}
	}

	return &ClientState{
		Seat:           seat,
		Team:           team,
		Hand:           g.Hand(seat),
		Players:        others,
		DeckCount:      g.DeckCount(),
		DiscardCount:   len(g.discardPile),
		DiscardTop:     g.DiscardTop(),
		DiscardSecond:  g.DiscardSecond(),
		PileFrozen:     g.pileFrozen(team),
		OurMelds:       meldsByName(g.TeamMelds(team)),
		OurRedThrees:   g.RedThrees(team),
		OurCanastas:    g.canastaCount(team),
		OurScore:       g.cumulativeScores[team],
		OtherMelds:     meldsByName(g.TeamMelds(other)),
		OtherRedThrees: g.RedThrees(other),
		OtherCanastas:  g.canastaCount(other),
		OtherScore:     g.cumulativeScores[other],
		CurrentPlayer:  g.currentPlayer,
		Phase:          g.phase,
		FinalScores:    g.FinalScores(),
	}
}

// meldsByName keys melds by rank name for JSON, since map keys must be
// strings on the wire.
func meldsByName(melds map[deck.Rank][]deck.Card) map[string][]deck.Card {
	named := make(map[string][]deck.Card, len(melds))
	for rank, pile := range melds {
		named[rank.String()] = pile
	}
	return named
}
