package core

import (
	"fmt"

	"gwi.com/divination/internal/content"
)

type FortuneCategory string

const (
	CategoryLove    FortuneCategory = "love"
	CategoryCareer  FortuneCategory = "career"
	CategoryHealth  FortuneCategory = "health"
	CategoryFortune FortuneCategory = "fortune"
)

var FortuneCategories = []FortuneCategory{CategoryLove, CategoryCareer, CategoryHealth, CategoryFortune}

const maxFortuneScore = 5

// DailyFortune scores are independent picks in [1,5]; no correlation
// between categories is modeled.
type DailyFortune struct {
	Love    int    `json:"love"`
	Career  int    `json:"career"`
	Health  int    `json:"health"`
	Fortune int    `json:"fortune"`
	Overall string `json:"overall"`
}

func (f DailyFortune) Score(c FortuneCategory) int {
	switch c {
	case CategoryLove:
		return f.Love
	case CategoryCareer:
		return f.Career
	case CategoryHealth:
		return f.Health
	case CategoryFortune:
		return f.Fortune
	default:
		return 0
	}
}

type ZodiacResolver struct {
	tables *content.Tables
	rng    RNG
}

func NewZodiacResolver(tables *content.Tables, rng RNG) *ZodiacResolver {
	return &ZodiacResolver{tables: tables, rng: rng}
}

// ResolveSign tests month*100+day against each sign's inclusive ranges in
// table order. Table validation guarantees a match; the last sign is the
// fallback.
func (z *ZodiacResolver) ResolveSign(month, day int) (content.Sign, error) {
	if month < 1 || month > 12 || day < 1 || day > content.DaysInMonth(month) {
		return content.Sign{}, fmt.Errorf("%w: %d/%d", ErrInvalidDate, month, day)
	}
	mmdd := month*100 + day
	for _, s := range z.tables.Signs {
		for _, r := range s.Ranges {
			if r.Contains(mmdd) {
				return s, nil
			}
		}
	}
	return z.tables.Signs[len(z.tables.Signs)-1], nil
}

func (z *ZodiacResolver) SignByID(id string) (content.Sign, error) {
	s, ok := z.tables.Sign(id)
	if !ok {
		return content.Sign{}, fmt.Errorf("%w: %q", ErrUnknownSign, id)
	}
	return s, nil
}

func (z *ZodiacResolver) SynthesizeFortune() DailyFortune {
	overall := z.tables.Fortunes.Overall
	return DailyFortune{
		Love:    z.rng.Intn(maxFortuneScore) + 1,
		Career:  z.rng.Intn(maxFortuneScore) + 1,
		Health:  z.rng.Intn(maxFortuneScore) + 1,
		Fortune: z.rng.Intn(maxFortuneScore) + 1,
		Overall: overall[z.rng.Intn(len(overall))],
	}
}

// FortuneText returns the descriptive text for a category score.
func (z *ZodiacResolver) FortuneText(category FortuneCategory, score int) (string, error) {
	var texts []string
	switch category {
	case CategoryLove:
		texts = z.tables.Fortunes.Love
	case CategoryCareer:
		texts = z.tables.Fortunes.Career
	case CategoryHealth:
		texts = z.tables.Fortunes.Health
	case CategoryFortune:
		texts = z.tables.Fortunes.Fortune
	default:
		return "", fmt.Errorf("unknown fortune category %q", category)
	}
	if score < 1 || score > len(texts) {
		return "", fmt.Errorf("fortune score %d out of range [1,%d]", score, len(texts))
	}
	return texts[score-1], nil
}

// FortuneTexts resolves the descriptive text for every category of f.
func (z *ZodiacResolver) FortuneTexts(f DailyFortune) (map[string]string, error) {
	out := make(map[string]string, len(FortuneCategories))
	for _, c := range FortuneCategories {
		text, err := z.FortuneText(c, f.Score(c))
		if err != nil {
			return nil, err
		}
		out[string(c)] = text
	}
	return out, nil
}
