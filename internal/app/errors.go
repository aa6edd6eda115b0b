package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrHeroNotFound   = errors.New("hero not found")
	ErrLLMUnavailable = errors.New("llm unavailable")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func llmFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrLLMUnavailable, err)
}
