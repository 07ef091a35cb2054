package core

import "errors"

var (
	ErrInvalidCardCount = errors.New("invalid card count")
	ErrInvalidDate      = errors.New("invalid date")
	ErrUnknownSign      = errors.New("unknown zodiac sign")
	ErrUnknownLayout    = errors.New("unknown tarot layout")
	ErrUnknownReading   = errors.New("unknown reading type")

	// AI path. These never fail a reading; they only populate its error field.
	ErrAIDisabled        = errors.New("ai interpretation disabled")
	ErrModelUnavailable  = errors.New("model capability unavailable")
	ErrModelInitFailed   = errors.New("model initialization failed")
	ErrGenerationTimeout = errors.New("ai generation timed out")
	ErrGenerationFailed  = errors.New("ai generation failed")
)
