package memory

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestTranscript_Empty(t *testing.T) {
	b := NewBuffer()
	if got := b.Transcript(); got != "" {
		t.Errorf("Transcript() on empty buffer = %q, want empty string", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestTranscript_Ordering(t *testing.T) {
	b := NewBuffer()
	b.Append("What is the WFH policy?", "Three days per week.")
	b.Append("What about Fridays?", "Fridays are office days.")

	want := "Human: What is the WFH policy?\n" +
		"Assistant: Three days per week.\n" +
		"Human: What about Fridays?\n" +
		"Assistant: Fridays are office days."
	if got := b.Transcript(); got != want {
		t.Errorf("Transcript() = %q, want %q", got, want)
	}
}

func TestTranscript_ChronologicalConcatenation(t *testing.T) {
	b := NewBuffer()
	const n = 25
	for i := range n {
		b.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	if b.Len() != n {
		t.Fatalf("Len() = %d, want %d", b.Len(), n)
	}

	transcript := b.Transcript()
	last := -1
	for i := range n {
		idx := strings.Index(transcript, fmt.Sprintf("Human: q%d\n", i))
		if idx < 0 {
			t.Fatalf("turn %d missing from transcript", i)
		}
		if idx <= last {
			t.Fatalf("turn %d out of order", i)
		}
		last = idx
	}
}

func TestTurns_ReturnsCopy(t *testing.T) {
	b := NewBuffer()
	b.Append("q", "a")

	turns := b.Turns()
	turns[0].Answer = "tampered"

	if got := b.Turns()[0].Answer; got != "a" {
		t.Errorf("internal turn mutated via copy: %q", got)
	}
}

func TestAppend_ConcurrentSerialization(t *testing.T) {
	b := NewBuffer()
	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				b.Append(fmt.Sprintf("w%d-q%d", w, i), "a")
			}
		}()
	}
	wg.Wait()

	if got := b.Len(); got != writers*perWriter {
		t.Errorf("Len() = %d, want %d", got, writers*perWriter)
	}
	// Per-writer order is preserved even with interleaving.
	transcript := b.Transcript()
	for w := range writers {
		last := -1
		for i := range perWriter {
			idx := strings.Index(transcript, fmt.Sprintf("w%d-q%d", w, i))
			if idx < 0 {
				t.Fatalf("writer %d turn %d missing", w, i)
			}
			if idx <= last {
				t.Fatalf("writer %d turn %d out of order", w, i)
			}
			last = idx
		}
	}
}
