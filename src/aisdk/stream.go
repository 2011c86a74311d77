package aisdk

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// StreamCallback is a function called for each chunk in a stream.
type StreamCallback func(chunk *StreamChunk) error

// StreamToCallback reads a stream and calls the callback for each chunk.
func StreamToCallback(stream StreamInterface, callback StreamCallback) error {
	defer stream.Close()

	for {
		chunk, err := stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if chunk == nil {
			return nil
		}

		if err := callback(chunk); err != nil {
			return err
		}
	}
}

// CollectStreamContent reads a stream and collects all content into a single string.
func CollectStreamContent(stream StreamInterface) (string, error) {
	agg := NewStreamAggregator()
	err := StreamToCallback(stream, func(chunk *StreamChunk) error {
		agg.AddChunk(chunk)
		return nil
	})
	return agg.Content(), err
}

// StreamAggregator accumulates streamed chunks.
type StreamAggregator struct {
	ID           string
	Model        string
	FinishReason string
	Usage        *Usage
	Chunks       int

	content strings.Builder
}

// NewStreamAggregator creates a new stream aggregator.
func NewStreamAggregator() *StreamAggregator {
	return &StreamAggregator{}
}

// AddChunk folds a chunk into the aggregate.
func (a *StreamAggregator) AddChunk(chunk *StreamChunk) {
	if chunk == nil {
		return
	}
	a.Chunks++
	if a.ID == "" {
		a.ID = chunk.ID
	}
	if a.Model == "" {
		a.Model = chunk.Model
	}
	a.content.WriteString(chunk.Delta)
	if chunk.FinishReason != "" {
		a.FinishReason = chunk.FinishReason
	}
	if chunk.Usage != nil {
		a.Usage = chunk.Usage
	}
}

// Content returns the text accumulated so far.
func (a *StreamAggregator) Content() string {
	return a.content.String()
}

// StreamError is a stream failure carrying the content received before it.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// EstimateTokens approximates the token count of s at four characters per
// token, rounding up.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
