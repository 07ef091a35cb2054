package core

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
	"gwi.com/divination/internal/config"
)

// ModelCapability is a streaming text generator. Generate yields chunks until
// the model stops, the consumer stops ranging, or ctx is canceled; there is
// no guaranteed end-of-answer signal.
type ModelCapability interface {
	Available() bool
	Initialize(ctx context.Context) error
	Generate(ctx context.Context, prompt string) iter.Seq2[string, error]
}

type InitState int

const (
	StateUninitialized InitState = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s InitState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("InitState(%d)", int(s))
	}
}

const terminalPunctuation = ".!?。！？"

// DrawItem is one element of a draw as presented to the model.
type DrawItem struct {
	Position    string
	Name        string
	Orientation string
	Meaning     string
}

// Draw is a fully materialized reading awaiting interpretation. Traditional
// is the table-driven text used whenever the model path does not produce one.
type Draw struct {
	Kind        ReadingType
	Question    string
	Layout      string
	Items       []DrawItem
	Traditional string
	// Diagnostics surfaces the reason the model path was skipped.
	Diagnostics bool
}

type Interpretation struct {
	Text   string
	Source Source
	Err    error
}

// ErrorText is the informational error string stored on readings.
func (i Interpretation) ErrorText() string {
	if i.Err == nil {
		return ""
	}
	return i.Err.Error()
}

type Status struct {
	State    string `json:"state"`
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
	Error    string `json:"error,omitempty"`
}

// Interpreter decides between model-generated and traditional text. It owns
// the model initialization state; at most one initialization runs at a time
// and concurrent callers share its outcome.
type Interpreter struct {
	model  ModelCapability
	cfg    config.AIConfig
	logger *slog.Logger

	mu          sync.Mutex
	state       InitState
	unavailable bool
	attempts    int
	lastErr     error
	group       singleflight.Group
}

func NewInterpreter(model ModelCapability, cfg config.AIConfig, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{model: model, cfg: cfg, logger: logger}
}

func (o *Interpreter) State() InitState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Interpreter) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{State: o.state.String(), Provider: o.cfg.Provider, Enabled: o.cfg.Enabled}
	if o.lastErr != nil {
		st.Error = o.lastErr.Error()
	}
	return st
}

// ensureReady drives UNINITIALIZED/FAILED towards READY. An unavailable
// capability is terminal. A failed initialization is retried on a later call
// only when RetryFailedInit is set.
func (o *Interpreter) ensureReady(ctx context.Context) error {
	o.mu.Lock()
	switch {
	case o.state == StateReady:
		o.mu.Unlock()
		return nil
	case o.state == StateFailed && (o.unavailable || !o.cfg.RetryFailedInit):
		err := o.lastErr
		o.mu.Unlock()
		return err
	}
	if o.model == nil || !o.model.Available() {
		o.state = StateFailed
		o.unavailable = true
		o.lastErr = ErrModelUnavailable
		o.mu.Unlock()
		o.logger.Warn("AI model capability unavailable, using traditional interpretations")
		return ErrModelUnavailable
	}
	seen := o.observedAttempts()
	o.mu.Unlock()

	_, err, _ := o.group.Do("initialize", func() (any, error) {
		return nil, o.initialize(ctx, seen)
	})
	return err
}

// observedAttempts is the number of attempts whose outcome a caller arriving
// now must accept. An attempt in flight counts as not yet finished. o.mu must
// be held.
func (o *Interpreter) observedAttempts() int {
	if o.state == StateInitializing {
		return o.attempts - 1
	}
	return o.attempts
}

// initialize runs one attempt unless an attempt that finished after the
// caller looked at the state already settled it.
func (o *Interpreter) initialize(ctx context.Context, seen int) error {
	o.mu.Lock()
	if o.state == StateReady {
		o.mu.Unlock()
		return nil
	}
	if o.attempts > seen && o.state == StateFailed {
		err := o.lastErr
		o.mu.Unlock()
		return err
	}
	o.state = StateInitializing
	o.attempts++
	o.mu.Unlock()

	o.logger.Info("Initializing AI model", "provider", o.cfg.Provider, "model", o.cfg.Model)
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timeout)
	defer cancel()
	initErr := o.model.Initialize(initCtx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if initErr != nil {
		o.state = StateFailed
		o.lastErr = fmt.Errorf("%w: %w", ErrModelInitFailed, initErr)
		o.logger.Error("AI model initialization failed", "error", initErr)
		return o.lastErr
	}
	o.state = StateReady
	o.lastErr = nil
	o.logger.Info("AI model initialized")
	return nil
}

// Interpret never fails: every error path yields the traditional text, with
// Err describing what went wrong on the model path.
func (o *Interpreter) Interpret(ctx context.Context, draw Draw) Interpretation {
	if !o.cfg.Enabled || (draw.Kind == ReadingIChing && !o.cfg.InterpretHexagram) {
		return o.skip(draw, ErrAIDisabled)
	}
	if err := o.ensureReady(ctx); err != nil {
		return o.skip(draw, err)
	}

	text, err := o.generate(ctx, BuildPrompt(draw))
	if err != nil {
		o.logger.Warn("AI interpretation failed, falling back to traditional", "kind", draw.Kind, "error", err)
		return Interpretation{Text: draw.Traditional, Source: SourceTraditional, Err: err}
	}
	return Interpretation{Text: text, Source: SourceAI}
}

func (o *Interpreter) skip(draw Draw, reason error) Interpretation {
	in := Interpretation{Text: draw.Traditional, Source: SourceTraditional}
	if draw.Diagnostics {
		in.Err = reason
	}
	return in
}

type accumulator struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (a *accumulator) add(chunk string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.WriteString(chunk)
	return a.buf.String()
}

func (a *accumulator) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

// generate races the completion heuristic against the timeout. The
// generation context is canceled as soon as a result is chosen, so a late
// stream is abandoned rather than left running.
func (o *Interpreter) generate(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var acc accumulator
	complete := make(chan string, 1)
	ended := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ended <- fmt.Errorf("model panicked: %v", r)
			}
		}()
		for chunk, err := range o.model.Generate(genCtx, prompt) {
			if err != nil {
				ended <- err
				return
			}
			if text := acc.add(chunk); o.isComplete(text) {
				complete <- text
				return
			}
		}
		ended <- nil
	}()

	timer := time.NewTimer(o.cfg.Timeout)
	defer timer.Stop()

	select {
	case text := <-complete:
		return CleanResponse(text), nil
	case err := <-ended:
		if err == nil {
			// A canceled caller also ends the stream.
			err = ctx.Err()
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		return o.acceptPartial(acc.String(), "stream ended")
	case <-timer.C:
		return o.acceptPartial(acc.String(), "timeout")
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
	}
}

// isComplete is a heuristic: long enough and ending on sentence punctuation.
// It can clip a longer answer or run past a short one. Echoed prompt text
// does not count towards either condition.
func (o *Interpreter) isComplete(text string) bool {
	answer := answerText(text)
	if utf8.RuneCountInString(answer) <= o.cfg.MinCompleteChars {
		return false
	}
	return endsWithTerminal(answer)
}

func (o *Interpreter) acceptPartial(text, reason string) (string, error) {
	if n := utf8.RuneCountInString(answerText(text)); n <= o.cfg.MinPartialChars {
		return "", fmt.Errorf("%w: %s after %d characters", ErrGenerationTimeout, reason, n)
	}
	return CleanResponse(text), nil
}

func endsWithTerminal(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && strings.ContainsRune(terminalPunctuation, r)
}

type promptTemplate struct {
	intro   string
	heading string
	marker  string
}

var promptTemplates = map[ReadingType]promptTemplate{
	ReadingTarot: {
		intro:   "As a professional tarot reader, give a deep and insightful interpretation of the following spread:",
		heading: "Cards drawn:",
		marker:  "Tarot interpretation:",
	},
	ReadingIChing: {
		intro:   "As a scholar of the I Ching, give a deep and insightful interpretation of the following hexagram reading:",
		heading: "Hexagrams cast:",
		marker:  "I Ching interpretation:",
	},
}

// BuildPrompt renders a draw for the model. Items are rendered as
// "<position>: <name>(<orientation>) - <meaning>".
func BuildPrompt(draw Draw) string {
	tpl, ok := promptTemplates[draw.Kind]
	if !ok {
		tpl = promptTemplates[ReadingTarot]
	}

	var b strings.Builder
	b.WriteString(tpl.intro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question: %s\n", draw.Question)
	if draw.Layout != "" {
		fmt.Fprintf(&b, "Layout: %s\n", draw.Layout)
	}
	b.WriteString("\n")
	b.WriteString(tpl.heading)
	b.WriteString("\n")
	for _, it := range draw.Items {
		fmt.Fprintf(&b, "%s: %s(%s) - %s\n", it.Position, it.Name, it.Orientation, it.Meaning)
	}
	b.WriteString("\nPlease give a comprehensive interpretation that covers:\n" +
		"1. what each element means in its position\n" +
		"2. how the elements relate to and influence each other\n" +
		"3. concrete advice on the question asked\n" +
		"4. the overall flow of energy and the likely course of events\n\n" +
		"The interpretation should be inspiring while keeping a sense of mystery.\n\n")
	b.WriteString(tpl.marker)
	return b.String()
}

// CleanResponse strips a parroted prompt and makes sure non-empty text ends
// on terminal punctuation.
func CleanResponse(text string) string {
	text = answerText(text)
	if text == "" || endsWithTerminal(text) {
		return text
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	if unicode.Is(unicode.Han, last) {
		return text + "。"
	}
	return text + "."
}

// answerText is the model's own text with any echoed prompt removed and
// surrounding space trimmed.
func answerText(text string) string {
	for _, tpl := range promptTemplates {
		text = stripEcho(text, tpl)
	}
	return strings.TrimSpace(text)
}

// stripEcho removes an echoed prompt. An echo whose marker has not arrived
// yet runs to the end of the text.
func stripEcho(text string, tpl promptTemplate) string {
	start := strings.Index(text, tpl.intro)
	if start < 0 {
		return text
	}
	end := strings.Index(text[start:], tpl.marker)
	if end < 0 {
		return text[:start]
	}
	return text[:start] + text[start+end+len(tpl.marker):]
}
