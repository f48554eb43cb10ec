package deck

import (
	"fmt"
	"math/rand"
)

type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
	NoSuit // jokers
)

var suitString = map[Suit]string{
	Hearts:   "Hearts",
	Diamonds: "Diamonds",
	Clubs:    "Clubs",
	Spades:   "Spades",
	NoSuit:   "None",
}

func (s Suit) String() string {
	return suitString[s]
}

func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank is declared in hand sort order: threes sort lowest, jokers highest.
type Rank int

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
	Joker
)

var rankString = map[Rank]string{
	Three: "Three",
	Four:  "Four",
	Five:  "Five",
	Six:   "Six",
	Seven: "Seven",
	Eight: "Eight",
	Nine:  "Nine",
	Ten:   "Ten",
	Jack:  "Jack",
	Queen: "Queen",
	King:  "King",
	Ace:   "Ace",
	Two:   "Two",
	Joker: "Joker",
}

func (r Rank) String() string {
	return rankString[r]
}

// Ranks lists every rank in sort order.
func Ranks() []Rank {
	return []Rank{Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace, Two, Joker}
}

var pointValues = map[Rank]int{
	Three: 5, // black threes; red threes are scored separately
	Four:  5,
	Five:  5,
	Six:   5,
	Seven: 5,
	Eight: 10,
	Nine:  10,
	Ten:   10,
	Jack:  10,
	Queen: 10,
	King:  10,
	Ace:   20,
	Two:   20,
	Joker: 50,
}

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) Value() int {
	if c.IsRedThree() {
		return 100
	}
	return pointValues[c.Rank]
}

func (c Card) IsWild() bool {
	return c.Rank == Two || c.Rank == Joker
}

func (c Card) IsRedThree() bool {
	return c.Rank == Three && c.Suit.IsRed()
}

func (c Card) String() string {
	if c.Rank == Joker {
		return "Joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Less orders cards for hand display: descending rank, suit as tiebreak.
func Less(a, b Card) bool {
	if a.Rank != b.Rank {
		return a.Rank > b.Rank
	}
	return a.Suit < b.Suit
}

func WildCount(cards []Card) (count int) {
	for _, card := range cards {
		if card.IsWild() {
			count++
		}
	}
	return
}

func Points(cards []Card) (total int) {
	for _, card := range cards {
		total += card.Value()
	}
	return
}

type Deck struct {
	Cards []Card `json:"cards"`
}

// New builds the 108-card double deck: two full packs plus two jokers each.
func New() *Deck {
	cards := make([]Card, 0, 108)
	ranks := []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
	suits := []Suit{Hearts, Diamonds, Clubs, Spades}

	for range 2 {
		for _, suit := range suits {
			for _, rank := range ranks {
				cards = append(cards, Card{suit, rank})
			}
		}
		cards = append(cards, Card{NoSuit, Joker})
		cards = append(cards, Card{NoSuit, Joker})
	}

	return &Deck{cards}
}

func (d *Deck) Count() int {
	return len(d.Cards)
}

// Draw removes up to n cards from the top of the deck.
func (d *Deck) Draw(n int) (drawn []Card) {
	for range n {
		if len(d.Cards) == 0 {
			return
		}
		card := d.Cards[len(d.Cards)-1]
		drawn = append(drawn, card)
		d.Cards = d.Cards[:len(d.Cards)-1]
	}
	return
}

// Shuffle performs a Fisher-Yates permutation using the supplied source so
// seeded games replay deterministically.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}
