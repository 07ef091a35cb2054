package core

import (
	"fmt"
	"time"

	"gwi.com/divination/internal/content"
)

type ReadingType string

const (
	ReadingTarot  ReadingType = "tarot"
	ReadingIChing ReadingType = "iching"
	ReadingZodiac ReadingType = "zodiac"
)

var ReadingTypes = []ReadingType{ReadingTarot, ReadingIChing, ReadingZodiac}

func ParseReadingType(s string) (ReadingType, error) {
	for _, t := range ReadingTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReading, s)
}

// Source tags where an interpretation's text came from.
type Source string

const (
	SourceAI          Source = "ai"
	SourceTraditional Source = "traditional"
)

type TarotReading struct {
	ID             string      `json:"id"`
	Date           time.Time   `json:"date"`
	Question       string      `json:"question"`
	Layout         string      `json:"layout"`
	Cards          []DrawnCard `json:"cards"`
	Interpretation string      `json:"interpretation"`
	Source         Source      `json:"source"`
	Error          string      `json:"error,omitempty"`
}

type IChingReading struct {
	ID               string            `json:"id"`
	Date             time.Time         `json:"date"`
	Question         string            `json:"question"`
	Lines            [6]LineValue      `json:"lines"`
	Hexagram         content.Hexagram  `json:"hexagram"`
	ChangingHexagram *content.Hexagram `json:"changing_hexagram,omitempty"`
	// EffectiveChange is false when the changing hexagram resolves to the
	// primary one.
	EffectiveChange bool   `json:"effective_change"`
	Interpretation  string `json:"interpretation"`
	Source          Source `json:"source,omitempty"`
	Error           string `json:"error,omitempty"`
}

type ZodiacReading struct {
	ID      string            `json:"id"`
	Date    time.Time         `json:"date"`
	Sign    content.Sign      `json:"sign"`
	Fortune DailyFortune      `json:"fortune"`
	Texts   map[string]string `json:"texts"`
}
