package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borjamrd/hormiwita/internal/service"
)

func streamOf(chunks ...string) *service.GuidedFlowStream {
	ch := make(chan string, len(chunks))
	full := ""
	for _, chunk := range chunks {
		full += chunk
		ch <- chunk
	}
	close(ch)
	return &service.GuidedFlowStream{
		Chunks: ch,
		Final:  func() (string, error) { return full, nil },
	}
}

func TestFold_ConcatenatesChunksInOrder(t *testing.T) {
	acc := NewAccumulator()
	var seen []string

	final := Fold(streamOf("Vamos ", "paso ", "a ", "paso."), acc, func(chunk string) {
		seen = append(seen, chunk)
	})

	assert.Equal(t, "Vamos paso a paso.", final)
	assert.Equal(t, []string{"Vamos ", "paso ", "a ", "paso."}, seen)
}

func TestFold_NilObserver(t *testing.T) {
	acc := NewAccumulator()
	final := Fold(streamOf("hola ", "mundo"), acc, nil)
	assert.Equal(t, "hola mundo", final)
}

func TestFold_AbandonedConsumerRecordsNothing(t *testing.T) {
	acc := NewAccumulator()
	acc.Abandon()
	relayed := 0

	final := Fold(streamOf("hola ", "mundo"), acc, func(string) { relayed++ })

	assert.Empty(t, final)
	assert.Zero(t, relayed)
	assert.False(t, acc.Live())
}

func TestAccumulator_AbandonMidStream(t *testing.T) {
	acc := NewAccumulator()
	acc.Append("hola ")
	acc.Abandon()
	acc.Append("mundo")

	assert.Equal(t, "hola ", acc.Finalize())
}

func TestAccumulator_AppendAfterFinalizeIgnored(t *testing.T) {
	acc := NewAccumulator()
	acc.Append("hola")
	require.Equal(t, "hola", acc.Finalize())

	acc.Append(" mundo")
	assert.Equal(t, "hola", acc.Finalize())
}
