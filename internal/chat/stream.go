package chat

import "strings"

// FinalAnswerMarker separates the model's preamble (intermediate
// reasoning, restated context) from the user-facing answer in a stream.
// Tokens before the marker are suppressed; tokens after it are forwarded.
const FinalAnswerMarker = "FINAL ANSWER"

// markerFilter is a two-phase stream consumer: it starts awaiting the
// marker and switches to passing once the marker sequence is observed,
// even when the marker arrives split across chunks.
//
// An empty marker means there is no preamble; everything passes.
type markerFilter struct {
	marker   string
	passing  bool
	trimming bool   // passing, but still dropping the marker's separator
	pending  string // unmatched tail while awaiting the marker
}

func newMarkerFilter(marker string) *markerFilter {
	return &markerFilter{
		marker:  marker,
		passing: marker == "",
	}
}

// feed consumes one chunk and returns the text to forward downstream.
// Before the marker it returns ""; the chunk containing the marker yields
// whatever follows it.
func (f *markerFilter) feed(chunk string) string {
	if f.passing {
		// The separator between marker and answer can arrive split
		// across chunks; keep trimming until the answer's first byte.
		if f.trimming {
			chunk = strings.TrimLeft(chunk, ": \n")
			if chunk == "" {
				return ""
			}
			f.trimming = false
		}
		return chunk
	}

	f.pending += chunk
	if idx := strings.Index(f.pending, f.marker); idx >= 0 {
		f.passing = true
		f.trimming = true
		out := strings.TrimLeft(f.pending[idx+len(f.marker):], ": \n")
		f.pending = ""
		if out != "" {
			f.trimming = false
		}
		return out
	}

	// Only a tail shorter than the marker can still complete it.
	if keep := len(f.marker) - 1; len(f.pending) > keep {
		f.pending = f.pending[len(f.pending)-keep:]
	}
	return ""
}
