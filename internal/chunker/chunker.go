// Package chunker splits page text into bounded, overlapping chunks
// aligned to natural boundaries so embeddings stay semantically whole.
package chunker

import (
	"regexp"
	"strings"
)

const (
	// boundaryWindow is how far back from the naive cut point a clean
	// boundary is searched for.
	boundaryWindow = 200

	// startLookback is how far back a tentative chunk start may be
	// realigned to a clean boundary.
	startLookback = 60
)

var wordBoundaryRe = regexp.MustCompile(`.*\b`)

// Chunk splits text into chunks of at most maxChunkSize characters with
// overlapSize characters of overlap between consecutive chunks. Chunk
// ends prefer sentence terminators, then paragraph breaks, then spaces,
// searched backward within boundaryWindow of the naive cut. Every
// returned chunk is non-empty after trimming. Whitespace-only input
// yields nil.
func Chunk(text string, maxChunkSize, overlapSize int) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if len(clean) <= maxChunkSize {
		return []string{clean}
	}

	var chunks []string
	start := 0
	for start < len(clean) {
		end := start + maxChunkSize
		if end > len(clean) {
			end = len(clean)
		}

		if end < len(clean) {
			end = shrinkToBoundary(clean, start, end)
		}

		if chunk := strings.TrimSpace(clean[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Overlap only when the chunk was larger than the requested
		// overlap, otherwise advance without it.
		advance := end - start
		tentative := end
		if advance > overlapSize {
			tentative = end - overlapSize
		}

		// start must strictly increase or the loop would not terminate.
		minNext := tentative
		if minNext <= start {
			minNext = start + 1
		}
		aligned := alignStart(clean, minNext, startLookback)
		if aligned <= start {
			start = minNext
		} else {
			start = aligned
		}
	}
	return chunks
}

// shrinkToBoundary moves end back to the nearest clean boundary within
// boundaryWindow: sentence terminator first, then paragraph break, then
// a single space. Keeps the hard cut when no boundary is in range.
func shrinkToBoundary(text string, start, end int) int {
	winStart := end - boundaryWindow
	if winStart < start {
		winStart = start
	}

	if b := strings.LastIndexAny(text[:end+1], ".!?"); b >= winStart {
		return b + 1
	}
	if p := strings.LastIndex(text[:end+1], "\n\n"); p >= winStart {
		return p + 2
	}
	if w := strings.LastIndexByte(text[:end+1], ' '); w >= winStart {
		return w
	}
	return end
}

// alignStart realigns a proposed chunk start to a nearby clean boundary
// within lookback characters, preferring punctuation over whitespace.
// Falls back to the proposed position when nothing qualifies.
func alignStart(text string, proposed, lookback int) int {
	if proposed <= 0 {
		return 0
	}
	from := proposed - lookback
	if from < 0 {
		from = 0
	}
	slice := text[from:proposed]

	if p := strings.LastIndexAny(slice, ".!?;:\n "); p >= 0 {
		return from + p + 1
	}
	if m := wordBoundaryRe.FindString(slice); len(m) > 0 {
		return from + len(m)
	}
	return proposed
}
