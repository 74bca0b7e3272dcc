package conversation

import (
	"strings"
	"sync"

	"github.com/borjamrd/hormiwita/internal/service"
)

// Accumulator folds guided-flow stream chunks into a single in-progress
// message buffer. A consumer that navigates away calls Abandon; chunks
// arriving after that are dropped so an abandoned stream cannot corrupt
// state observed by anyone still holding the accumulator.
type Accumulator struct {
	mu        sync.Mutex
	buf       strings.Builder
	live      bool
	finalized bool
}

// NewAccumulator creates a live accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{live: true}
}

// Append adds one chunk in arrival order. Appends after Abandon or
// Finalize are ignored.
func (a *Accumulator) Append(chunk string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.live || a.finalized {
		return
	}
	a.buf.WriteString(chunk)
}

// Abandon marks the consumer as gone. The in-flight stream keeps
// draining but no further chunk reaches the buffer.
func (a *Accumulator) Abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live = false
}

// Live reports whether the consumer is still mounted.
func (a *Accumulator) Live() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Finalize closes the buffer and returns the accumulated text.
func (a *Accumulator) Finalize() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalized = true
	return a.buf.String()
}

// Fold consumes a guided-flow stream to completion, appending each chunk
// to the accumulator in arrival order, and finalizes the buffer when the
// channel closes. onChunk, when non-nil, observes each chunk as it
// arrives (used to relay chunks to a websocket). The returned text
// equals the concatenation of all appended chunks.
func Fold(stream *service.GuidedFlowStream, acc *Accumulator, onChunk func(string)) string {
	for chunk := range stream.Chunks {
		acc.Append(chunk)
		if onChunk != nil && acc.Live() {
			onChunk(chunk)
		}
	}
	return acc.Finalize()
}
