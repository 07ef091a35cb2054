package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastLineDistribution(t *testing.T) {
	g := NewHexagramGenerator(testTables(t), seededRNG(t))

	const n = 80000
	counts := map[LineValue]int{}
	for range n {
		v := g.CastLine()
		require.True(t, v.Valid(), "line value %d out of range", v)
		counts[v]++
	}

	want := map[LineValue]float64{OldYin: 0.125, YoungYang: 0.375, YoungYin: 0.375, OldYang: 0.125}
	for v, p := range want {
		got := float64(counts[v]) / n
		assert.InDelta(t, p, got, 0.01, "frequency of %d", v)
	}
}

func TestCastLineCoinMapping(t *testing.T) {
	tables := testTables(t)

	heads := NewHexagramGenerator(tables, &deterministicRNG{floats: []float64{0.1}})
	assert.Equal(t, OldYin, heads.CastLine())

	tails := NewHexagramGenerator(tables, &deterministicRNG{floats: []float64{0.9}})
	assert.Equal(t, OldYang, tails.CastLine())

	mixed := NewHexagramGenerator(tables, &deterministicRNG{floats: []float64{0.1, 0.9, 0.9}})
	assert.Equal(t, YoungYin, mixed.CastLine())
}

func TestGenerateHexagramLinesValid(t *testing.T) {
	g := NewHexagramGenerator(testTables(t), seededRNG(t))
	for range 200 {
		lines, h := g.GenerateHexagram()
		for _, l := range lines {
			assert.True(t, l.Valid())
		}
		assert.Equal(t, g.Resolve(lines).ID, h.ID)
		assert.GreaterOrEqual(t, h.ID, 1)
		assert.LessOrEqual(t, h.ID, 22)
	}
}

func TestHasChangingLines(t *testing.T) {
	tests := []struct {
		name  string
		lines [6]LineValue
		want  bool
	}{
		{"all stable", [6]LineValue{7, 8, 7, 8, 7, 8}, false},
		{"one old yin", [6]LineValue{7, 8, 6, 8, 7, 8}, true},
		{"one old yang", [6]LineValue{9, 8, 7, 8, 7, 8}, true},
		{"all changing", [6]LineValue{6, 9, 6, 9, 6, 9}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasChangingLines(tc.lines))
		})
	}
}

func TestChangedLines(t *testing.T) {
	in := [6]LineValue{6, 9, 6, 9, 6, 9}
	assert.Equal(t, [6]LineValue{7, 8, 7, 8, 7, 8}, ChangedLines(in))
	assert.Equal(t, [6]LineValue{6, 9, 6, 9, 6, 9}, in, "input must not be modified")

	stable := [6]LineValue{7, 8, 8, 7, 7, 8}
	assert.Equal(t, stable, ChangedLines(stable))
}

func TestResolve(t *testing.T) {
	g := NewHexagramGenerator(testTables(t), seededRNG(t))

	// All yin: upper=0, lower=0 → id 1.
	assert.Equal(t, 1, g.Resolve([6]LineValue{8, 8, 8, 8, 8, 8}).ID)
	// All yang: 7*8+7 = 63, 63 % 22 + 1 = 20.
	assert.Equal(t, 20, g.Resolve([6]LineValue{7, 9, 7, 9, 7, 9}).ID)
	// Bottom line only: lower=1 → id 2.
	assert.Equal(t, 2, g.Resolve([6]LineValue{7, 8, 8, 8, 8, 8}).ID)
	// Top line only: upper=4 → 32 % 22 + 1 = 11.
	assert.Equal(t, 11, g.Resolve([6]LineValue{8, 8, 8, 8, 8, 7}).ID)
}

func TestChangingHexagram(t *testing.T) {
	g := NewHexagramGenerator(testTables(t), seededRNG(t))

	_, ok := g.ChangingHexagram([6]LineValue{7, 8, 7, 8, 7, 8})
	assert.False(t, ok)

	lines := [6]LineValue{9, 9, 9, 9, 9, 9}
	assert.Equal(t, 20, g.Resolve(lines).ID)
	changing, ok := g.ChangingHexagram(lines)
	require.True(t, ok)
	assert.Equal(t, 1, changing.ID)
}

func TestChangingHexagramSameID(t *testing.T) {
	g := NewHexagramGenerator(testTables(t), seededRNG(t))

	// Primary resolves 0 → id 1; changed lines resolve 22 → id 1 as well.
	lines := [6]LineValue{8, 6, 6, 8, 6, 8}
	primary := g.Resolve(lines)
	changing, ok := g.ChangingHexagram(lines)
	require.True(t, ok)
	assert.Equal(t, primary.ID, changing.ID)

	text := InterpretHexagram(primary, &changing)
	assert.NotContains(t, text, "Changing hexagram:")
	assert.Contains(t, text, "gives clear guidance")
}

func TestInterpretHexagram(t *testing.T) {
	tables := testTables(t)
	qian, _ := tables.Hexagram(1)
	kun, _ := tables.Hexagram(2)

	single := InterpretHexagram(qian, nil)
	assert.Contains(t, single, qian.Interpretation)
	assert.Contains(t, single, "The hexagram 乾 (The Creative) gives clear guidance")
	assert.Contains(t, single, "Reflect quietly")

	both := InterpretHexagram(qian, &kun)
	assert.Contains(t, both, kun.Interpretation)
	assert.Contains(t, both, "Moving from 乾 (The Creative) to 坤 (The Receptive)")
	assert.Contains(t, both, "Reflect quietly")
	assert.Equal(t, both, InterpretHexagram(qian, &kun))
}

func TestLineValueNames(t *testing.T) {
	assert.Equal(t, "old yin", OldYin.Name())
	assert.Equal(t, "⚌", OldYang.Symbol())
	assert.True(t, OldYang.IsChanging())
	assert.False(t, YoungYin.IsChanging())
	assert.False(t, LineValue(5).Valid())
}
