package core

import (
	"fmt"
	"strings"

	"gwi.com/divination/internal/content"
)

// LineValue is the sum of three coin tosses, each worth 2 or 3.
type LineValue int

const (
	OldYin    LineValue = 6
	YoungYang LineValue = 7
	YoungYin  LineValue = 8
	OldYang   LineValue = 9
)

func (v LineValue) Valid() bool {
	return v >= OldYin && v <= OldYang
}

// IsChanging reports whether the line flips when deriving the changing hexagram.
func (v LineValue) IsChanging() bool {
	return v == OldYin || v == OldYang
}

func (v LineValue) IsYang() bool {
	return v == YoungYang || v == OldYang
}

func (v LineValue) Name() string {
	switch v {
	case OldYin:
		return "old yin"
	case YoungYang:
		return "young yang"
	case YoungYin:
		return "young yin"
	case OldYang:
		return "old yang"
	default:
		return fmt.Sprintf("invalid line %d", int(v))
	}
}

func (v LineValue) Symbol() string {
	switch v {
	case OldYin:
		return "⚏"
	case YoungYin:
		return "⚋"
	case OldYang:
		return "⚌"
	default:
		return "⚊"
	}
}

type HexagramGenerator struct {
	tables *content.Tables
	rng    RNG
}

func NewHexagramGenerator(tables *content.Tables, rng RNG) *HexagramGenerator {
	return &HexagramGenerator{tables: tables, rng: rng}
}

// CastLine simulates three coin tosses.
func (g *HexagramGenerator) CastLine() LineValue {
	sum := 0
	for range 3 {
		if g.rng.Float64() < 0.5 {
			sum += 2
		} else {
			sum += 3
		}
	}
	return LineValue(sum)
}

// GenerateHexagram casts six lines bottom to top and resolves them.
func (g *HexagramGenerator) GenerateHexagram() ([6]LineValue, content.Hexagram) {
	var lines [6]LineValue
	for i := range lines {
		lines[i] = g.CastLine()
	}
	return lines, g.Resolve(lines)
}

// Resolve maps six lines onto the hexagram table. The id is taken modulo the
// table size, which covers only part of the 64 traditional hexagrams.
func (g *HexagramGenerator) Resolve(lines [6]LineValue) content.Hexagram {
	lower := trigramValue(lines[0], lines[1], lines[2])
	upper := trigramValue(lines[3], lines[4], lines[5])
	id := (upper*8+lower)%g.tables.HexagramCount() + 1
	h, _ := g.tables.Hexagram(id)
	return h
}

func trigramValue(b1, b2, b3 LineValue) int {
	bit := func(v LineValue) int {
		if v.IsYang() {
			return 1
		}
		return 0
	}
	return bit(b3)*4 + bit(b2)*2 + bit(b1)
}

func HasChangingLines(lines [6]LineValue) bool {
	for _, l := range lines {
		if l.IsChanging() {
			return true
		}
	}
	return false
}

// ChangedLines turns old yin into yang (6→7) and old yang into yin (9→8).
func ChangedLines(lines [6]LineValue) [6]LineValue {
	out := lines
	for i, l := range out {
		switch l {
		case OldYin:
			out[i] = YoungYang
		case OldYang:
			out[i] = YoungYin
		}
	}
	return out
}

// ChangingHexagram resolves the changed lines. ok is false when no line is
// changing. The result may equal the primary hexagram.
func (g *HexagramGenerator) ChangingHexagram(lines [6]LineValue) (content.Hexagram, bool) {
	if !HasChangingLines(lines) {
		return content.Hexagram{}, false
	}
	return g.Resolve(ChangedLines(lines)), true
}

func hexagramTitle(h content.Hexagram) string {
	if h.NameEn == "" {
		return h.Name
	}
	return fmt.Sprintf("%s (%s)", h.Name, h.NameEn)
}

// InterpretHexagram composes the traditional reading text. changing is
// ignored when nil or equal to primary.
func InterpretHexagram(primary content.Hexagram, changing *content.Hexagram) string {
	var b strings.Builder
	b.WriteString("Primary hexagram:\n")
	b.WriteString(primary.Interpretation)
	b.WriteString("\n\n")

	if changing != nil && changing.ID != primary.ID {
		fmt.Fprintf(&b, "Changing hexagram:\nThe changed hexagram %s tells you: %s\n\n", hexagramTitle(*changing), changing.Interpretation)
		fmt.Fprintf(&b, "Overall guidance:\nThe primary hexagram shows the present situation and the changing hexagram the direction of development. "+
			"Moving from %s to %s signals that the situation is in transition.", hexagramTitle(primary), hexagramTitle(*changing))
	} else {
		fmt.Fprintf(&b, "Overall guidance:\nThe hexagram %s gives clear guidance for your question.", hexagramTitle(primary))
	}

	b.WriteString("\n\nReflect quietly on the meaning of the hexagram and weigh its wisdom against your own circumstances.")
	return b.String()
}
