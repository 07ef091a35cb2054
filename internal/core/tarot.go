package core

import (
	"fmt"
	"strings"

	"gwi.com/divination/internal/content"
)

// ReversedProbability is the independent per-card chance of a reversed draw.
const ReversedProbability = 0.30

var (
	threeCardPositions = []string{"past", "present", "future"}
	crossPositions     = []string{"core issue", "external influence", "inner state", "recommended action", "final outcome"}
)

type DrawnCard struct {
	Card       content.Card `json:"card"`
	Position   string       `json:"position"`
	IsReversed bool         `json:"is_reversed"`
}

func (d DrawnCard) Orientation() string {
	if d.IsReversed {
		return "reversed"
	}
	return "upright"
}

func (d DrawnCard) Meaning() string {
	if d.IsReversed {
		return d.Card.Reversed
	}
	return d.Card.Upright
}

type TarotDrawer struct {
	deck []content.Card
	rng  RNG
}

func NewTarotDrawer(tables *content.Tables, rng RNG) *TarotDrawer {
	return &TarotDrawer{deck: tables.Cards, rng: rng}
}

func (d *TarotDrawer) DeckSize() int {
	return len(d.deck)
}

// DrawCards shuffles a copy of the deck and deals the first count cards.
// The deck itself is never reordered.
func (d *TarotDrawer) DrawCards(count int) ([]DrawnCard, error) {
	if count < 1 || count > len(d.deck) {
		return nil, fmt.Errorf("%w: %d (deck has %d cards)", ErrInvalidCardCount, count, len(d.deck))
	}

	shuffled := make([]content.Card, len(d.deck))
	copy(shuffled, d.deck)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	cards := make([]DrawnCard, count)
	for i := range count {
		cards[i] = DrawnCard{
			Card:       shuffled[i],
			Position:   PositionLabel(i, count),
			IsReversed: d.rng.Float64() < ReversedProbability,
		}
	}
	return cards, nil
}

// PositionLabel names the slot at index in a spread of total cards.
func PositionLabel(index, total int) string {
	switch total {
	case 1:
		return "current situation"
	case len(threeCardPositions):
		return threeCardPositions[index]
	case len(crossPositions):
		return crossPositions[index]
	default:
		return fmt.Sprintf("position %d", index+1)
	}
}

// InterpretTarot builds the table-driven reading for a spread.
func InterpretTarot(cards []DrawnCard) string {
	parts := make([]string, 0, len(cards)+2)
	for _, c := range cards {
		parts = append(parts, fmt.Sprintf("%s (%s - %s): %s", c.Position, c.Card.Name, c.Orientation(), c.Meaning()))
	}
	parts = append(parts, "Overall reading:")

	switch len(cards) {
	case 1:
		parts = append(parts, "This card offers direct guidance on your current question. "+
			"Consider its meaning carefully and apply it to your own situation.")
	case 3:
		parts = append(parts, "The past, present and future cards trace how things are unfolding. "+
			"What came before shaped the present, and the choices you make now will steer the future.")
	default:
		parts = append(parts, "Together these cards give you a well-rounded view. "+
			"Each position carries its own meaning, and read as a whole they answer your question in depth.")
	}
	return strings.Join(parts, "\n\n")
}
