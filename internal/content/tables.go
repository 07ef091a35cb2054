// Package content holds the static, versioned tables readings are built from:
// hexagrams, the tarot deck and layouts, zodiac signs and fortune texts.
//
// Tables are embedded YAML, parsed and validated once, and never mutated
// afterwards. Callers share the same *Tables value.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

const (
	hexagramsFile = "data/hexagrams.yaml"
	tarotFile     = "data/tarot.yaml"
	zodiacFile    = "data/zodiac.yaml"

	signCount          = 12
	fortuneTextsPerCat = 5
)

var ErrInvalidTable = errors.New("invalid content table")

type Hexagram struct {
	ID             int       `yaml:"id" json:"id"`
	Name           string    `yaml:"name" json:"name"`
	NameEn         string    `yaml:"name_en" json:"name_en"`
	Trigrams       [2]string `yaml:"trigrams" json:"trigrams"`
	Judgement      string    `yaml:"judgement" json:"judgement"`
	Interpretation string    `yaml:"interpretation" json:"interpretation"`
}

type Card struct {
	ID          int      `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Suit        string   `yaml:"suit" json:"suit"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Upright     string   `yaml:"upright" json:"upright_meaning"`
	Reversed    string   `yaml:"reversed" json:"reversed_meaning"`
	Description string   `yaml:"description" json:"description"`
}

// Layout is a named tarot spread with a fixed card count.
type Layout struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Cards int    `yaml:"cards" json:"cards"`
}

// DateRange is an inclusive span of month*100+day values.
type DateRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

func (r DateRange) Contains(mmdd int) bool {
	return mmdd >= r.From && mmdd <= r.To
}

type Sign struct {
	ID      string      `yaml:"id" json:"id"`
	Name    string      `yaml:"name" json:"name"`
	NameEn  string      `yaml:"name_en" json:"name_en"`
	Element string      `yaml:"element" json:"element"`
	Dates   string      `yaml:"dates" json:"dates"`
	Symbol  string      `yaml:"symbol" json:"symbol"`
	Ranges  []DateRange `yaml:"ranges" json:"-"`
}

// Fortunes holds descriptive text per category, indexed by score-1, plus
// the pool of overall summaries.
type Fortunes struct {
	Love    []string `yaml:"love"`
	Career  []string `yaml:"career"`
	Health  []string `yaml:"health"`
	Fortune []string `yaml:"fortune"`
	Overall []string `yaml:"overall"`
}

type Tables struct {
	HexagramsVersion int
	TarotVersion     int
	ZodiacVersion    int

	Hexagrams []Hexagram
	Cards     []Card
	Layouts   []Layout
	Signs     []Sign
	Fortunes  Fortunes
}

type hexagramsDoc struct {
	Version   int        `yaml:"version"`
	Hexagrams []Hexagram `yaml:"hexagrams"`
}

type tarotDoc struct {
	Version int      `yaml:"version"`
	Layouts []Layout `yaml:"layouts"`
	Cards   []Card   `yaml:"cards"`
}

type zodiacDoc struct {
	Version  int      `yaml:"version"`
	Signs    []Sign   `yaml:"signs"`
	Fortunes Fortunes `yaml:"fortunes"`
}

var (
	loadOnce sync.Once
	loaded   *Tables
	loadErr  error
)

// Default returns the embedded tables, parsing them on first use.
func Default() (*Tables, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Load(dataFS)
	})
	return loaded, loadErr
}

// Load parses and validates the three table files from fsys.
func Load(fsys fs.FS) (*Tables, error) {
	hexRaw, err := fs.ReadFile(fsys, hexagramsFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", hexagramsFile, err)
	}
	tarotRaw, err := fs.ReadFile(fsys, tarotFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tarotFile, err)
	}
	zodiacRaw, err := fs.ReadFile(fsys, zodiacFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zodiacFile, err)
	}
	return Parse(hexRaw, tarotRaw, zodiacRaw)
}

// Parse builds Tables from raw YAML documents.
func Parse(hexagramsYAML, tarotYAML, zodiacYAML []byte) (*Tables, error) {
	var hd hexagramsDoc
	if err := yaml.Unmarshal(hexagramsYAML, &hd); err != nil {
		return nil, fmt.Errorf("parse hexagrams: %w", err)
	}
	var td tarotDoc
	if err := yaml.Unmarshal(tarotYAML, &td); err != nil {
		return nil, fmt.Errorf("parse tarot: %w", err)
	}
	var zd zodiacDoc
	if err := yaml.Unmarshal(zodiacYAML, &zd); err != nil {
		return nil, fmt.Errorf("parse zodiac: %w", err)
	}

	t := &Tables{
		HexagramsVersion: hd.Version,
		TarotVersion:     td.Version,
		ZodiacVersion:    zd.Version,
		Hexagrams:        hd.Hexagrams,
		Cards:            td.Cards,
		Layouts:          td.Layouts,
		Signs:            zd.Signs,
		Fortunes:         zd.Fortunes,
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// HexagramCount is the modulus used when resolving line patterns to ids.
func (t *Tables) HexagramCount() int {
	return len(t.Hexagrams)
}

// Hexagram looks up a hexagram by its 1-based id.
func (t *Tables) Hexagram(id int) (Hexagram, bool) {
	if id < 1 || id > len(t.Hexagrams) {
		return Hexagram{}, false
	}
	return t.Hexagrams[id-1], true
}

func (t *Tables) Layout(id string) (Layout, bool) {
	for _, l := range t.Layouts {
		if l.ID == id {
			return l, true
		}
	}
	return Layout{}, false
}

func (t *Tables) Sign(id string) (Sign, bool) {
	for _, s := range t.Signs {
		if s.ID == id {
			return s, true
		}
	}
	return Sign{}, false
}

// DaysInMonth returns the day count for month, counting February as 29 so
// leap-day birthdays resolve.
func DaysInMonth(month int) int {
	switch month {
	case 2:
		return 29
	case 4, 6, 9, 11:
		return 30
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	default:
		return 0
	}
}

func (t *Tables) signCovers(mmdd int) bool {
	for _, s := range t.Signs {
		for _, r := range s.Ranges {
			if r.Contains(mmdd) {
				return true
			}
		}
	}
	return false
}

func (t *Tables) validate() error {
	if len(t.Hexagrams) == 0 {
		return fmt.Errorf("%w: no hexagrams", ErrInvalidTable)
	}
	// Resolution indexes by id, so ids must be exactly 1..N in order.
	for i, h := range t.Hexagrams {
		if h.ID != i+1 {
			return fmt.Errorf("%w: hexagram at index %d has id %d, want %d", ErrInvalidTable, i, h.ID, i+1)
		}
	}

	if len(t.Cards) == 0 {
		return fmt.Errorf("%w: empty tarot deck", ErrInvalidTable)
	}
	seen := make(map[int]bool, len(t.Cards))
	for _, c := range t.Cards {
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate card id %d", ErrInvalidTable, c.ID)
		}
		seen[c.ID] = true
		if c.Upright == "" || c.Reversed == "" {
			return fmt.Errorf("%w: card %d is missing a meaning", ErrInvalidTable, c.ID)
		}
	}
	for _, l := range t.Layouts {
		if l.Cards < 1 || l.Cards > len(t.Cards) {
			return fmt.Errorf("%w: layout %q draws %d cards", ErrInvalidTable, l.ID, l.Cards)
		}
	}

	if len(t.Signs) != signCount {
		return fmt.Errorf("%w: want %d zodiac signs, got %d", ErrInvalidTable, signCount, len(t.Signs))
	}
	// Every calendar day must fall inside some sign's ranges; the resolver's
	// last-sign fallback is never meant to be reached.
	for month := 1; month <= 12; month++ {
		for day := 1; day <= DaysInMonth(month); day++ {
			if !t.signCovers(month*100 + day) {
				return fmt.Errorf("%w: no zodiac sign covers %d/%d", ErrInvalidTable, month, day)
			}
		}
	}
	for name, texts := range map[string][]string{
		"love":    t.Fortunes.Love,
		"career":  t.Fortunes.Career,
		"health":  t.Fortunes.Health,
		"fortune": t.Fortunes.Fortune,
	} {
		if len(texts) != fortuneTextsPerCat {
			return fmt.Errorf("%w: fortune category %s has %d texts, want %d", ErrInvalidTable, name, len(texts), fortuneTextsPerCat)
		}
	}
	if len(t.Fortunes.Overall) == 0 {
		return fmt.Errorf("%w: no overall fortune templates", ErrInvalidTable)
	}
	return nil
}
