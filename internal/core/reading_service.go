package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gwi.com/divination/internal/content"
	"gwi.com/divination/internal/store"
)

const defaultLayout = "single"

// HistoryStore persists readings per type, newest first, with a size cap.
type HistoryStore interface {
	Append(ctx context.Context, e store.Entry) error
	List(ctx context.Context, readingType string) ([]store.Entry, error)
	Remove(ctx context.Context, readingType, id string) error
	Clear(ctx context.Context, readingType string) error
	ClearAll(ctx context.Context) error
}

type TarotRequest struct {
	Question    string `json:"question"`
	Layout      string `json:"layout"`
	Diagnostics bool   `json:"diagnostics"`
}

type IChingRequest struct {
	Question    string `json:"question"`
	Diagnostics bool   `json:"diagnostics"`
}

// ZodiacRequest selects a sign either directly or by birth date.
type ZodiacRequest struct {
	Sign  string `json:"sign"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
}

// ReadingService runs a reading end to end: draw, interpret, record. The
// history store is optional; without one readings are not kept.
type ReadingService struct {
	tables      *content.Tables
	hexagrams   *HexagramGenerator
	tarot       *TarotDrawer
	zodiac      *ZodiacResolver
	interpreter *Interpreter
	history     HistoryStore
	logger      *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewReadingService(tables *content.Tables, rng RNG, interpreter *Interpreter, history HistoryStore, logger *slog.Logger) *ReadingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingService{
		tables:      tables,
		hexagrams:   NewHexagramGenerator(tables, rng),
		tarot:       NewTarotDrawer(tables, rng),
		zodiac:      NewZodiacResolver(tables, rng),
		interpreter: interpreter,
		history:     history,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *ReadingService) AIStatus() Status {
	return s.interpreter.Status()
}

func (s *ReadingService) Layouts() []content.Layout {
	return s.tables.Layouts
}

func (s *ReadingService) NewTarotReading(ctx context.Context, req TarotRequest) (*TarotReading, error) {
	layoutID := req.Layout
	if layoutID == "" {
		layoutID = defaultLayout
	}
	layout, ok := s.tables.Layout(layoutID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, req.Layout)
	}

	cards, err := s.tarot.DrawCards(layout.Cards)
	if err != nil {
		return nil, err
	}

	items := make([]DrawItem, len(cards))
	for i, c := range cards {
		items[i] = DrawItem{Position: c.Position, Name: c.Card.Name, Orientation: c.Orientation(), Meaning: c.Meaning()}
	}
	in := s.interpreter.Interpret(ctx, Draw{
		Kind:        ReadingTarot,
		Question:    req.Question,
		Layout:      layout.Label,
		Items:       items,
		Traditional: InterpretTarot(cards),
		Diagnostics: req.Diagnostics,
	})

	reading := &TarotReading{
		ID:             s.newID(),
		Date:           s.now().UTC(),
		Question:       req.Question,
		Layout:         layout.ID,
		Cards:          cards,
		Interpretation: in.Text,
		Source:         in.Source,
		Error:          in.ErrorText(),
	}
	s.record(ctx, ReadingTarot, reading.ID, reading.Date, reading)
	return reading, nil
}

func (s *ReadingService) NewIChingReading(ctx context.Context, req IChingRequest) (*IChingReading, error) {
	lines, primary := s.hexagrams.GenerateHexagram()

	reading := &IChingReading{
		ID:       s.newID(),
		Date:     s.now().UTC(),
		Question: req.Question,
		Lines:    lines,
		Hexagram: primary,
	}
	primaryState := "stable"
	items := []DrawItem{}
	if changing, ok := s.hexagrams.ChangingHexagram(lines); ok {
		primaryState = "changing"
		reading.ChangingHexagram = &changing
		reading.EffectiveChange = changing.ID != primary.ID
	}
	items = append(items, DrawItem{Position: "primary hexagram", Name: hexagramTitle(primary), Orientation: primaryState, Meaning: primary.Interpretation})
	if reading.EffectiveChange {
		c := *reading.ChangingHexagram
		items = append(items, DrawItem{Position: "changing hexagram", Name: hexagramTitle(c), Orientation: "derived", Meaning: c.Interpretation})
	}

	in := s.interpreter.Interpret(ctx, Draw{
		Kind:        ReadingIChing,
		Question:    req.Question,
		Items:       items,
		Traditional: InterpretHexagram(primary, reading.ChangingHexagram),
		Diagnostics: req.Diagnostics,
	})
	reading.Interpretation = in.Text
	reading.Source = in.Source
	reading.Error = in.ErrorText()

	s.record(ctx, ReadingIChing, reading.ID, reading.Date, reading)
	return reading, nil
}

func (s *ReadingService) NewZodiacReading(ctx context.Context, req ZodiacRequest) (*ZodiacReading, error) {
	var (
		sign content.Sign
		err  error
	)
	if req.Sign != "" {
		sign, err = s.zodiac.SignByID(req.Sign)
	} else {
		sign, err = s.zodiac.ResolveSign(req.Month, req.Day)
	}
	if err != nil {
		return nil, err
	}

	fortune := s.zodiac.SynthesizeFortune()
	texts, err := s.zodiac.FortuneTexts(fortune)
	if err != nil {
		return nil, fmt.Errorf("failed to describe fortune: %w", err)
	}

	reading := &ZodiacReading{
		ID:      s.newID(),
		Date:    s.now().UTC(),
		Sign:    sign,
		Fortune: fortune,
		Texts:   texts,
	}
	s.record(ctx, ReadingZodiac, reading.ID, reading.Date, reading)
	return reading, nil
}

// record stores a finished reading. Storage failures are logged and do not
// fail the reading.
func (s *ReadingService) record(ctx context.Context, t ReadingType, id string, at time.Time, reading any) {
	if s.history == nil {
		return
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		s.logger.Error("Failed to encode reading for history", "type", t, "id", id, "error", err)
		return
	}
	entry := store.Entry{ID: id, Type: string(t), CreatedAt: at, Payload: payload}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to store reading in history", "type", t, "id", id, "error", err)
	}
}

// History returns stored readings of t, most recent first, as their JSON
// encodings. A service without a history store keeps no readings.
func (s *ReadingService) History(ctx context.Context, t ReadingType) ([]json.RawMessage, error) {
	if s.history == nil {
		return []json.RawMessage{}, nil
	}
	entries, err := s.history.List(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s history: %w", t, err)
	}
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		out[i] = e.Payload
	}
	return out, nil
}

func (s *ReadingService) RemoveReading(ctx context.Context, t ReadingType, id string) error {
	if s.history == nil {
		return fmt.Errorf("failed to remove reading: %w", store.ErrNotFound)
	}
	if err := s.history.Remove(ctx, string(t), id); err != nil {
		return fmt.Errorf("failed to remove reading: %w", err)
	}
	return nil
}

func (s *ReadingService) ClearHistory(ctx context.Context, t ReadingType) error {
	if s.history == nil {
		return nil
	}
	return s.history.Clear(ctx, string(t))
}

func (s *ReadingService) ClearAllHistory(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	return s.history.ClearAll(ctx)
}
