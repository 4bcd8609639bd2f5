package ingestion_engine

import (
	"strings"
	"unicode"
)

// Chunking defaults. A token is estimated at ~4 characters, so the default
// 500-token budget yields chunks of roughly 2000 characters.
const (
	DefaultMaxTokens    = 500
	DefaultOverlapChars = 50

	charsPerToken = 4
	minChunkChars = 20
)

// separators are tried in priority order: paragraph break, line break,
// sentence end, word boundary, then a hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// TextChunk is one segment of extracted text. StartChar/EndChar index into
// the original extracted text; Text itself is sanitized of control
// characters, so it may be marginally shorter than the range it covers.
type TextChunk struct {
	Text       string
	StartChar  int
	EndChar    int
	TokenCount int
}

// ApproxTokenCount is a cheap token estimator (~4 chars per token).
func ApproxTokenCount(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// ChunkText splits text into overlapping, token-bounded chunks.
//
// The splitter works on text alone, so each chunk's offset is recovered by a
// forward search anchored at the previous chunk's end; repeated substrings
// cannot jump backwards because the search never looks before the cursor.
// After the offsets are fixed, each chunk's start is extended back by
// overlapChars into the original text to give consecutive chunks a shared
// context window.
//
// Fragments whose token estimate exceeds maxTokens or whose sanitized length
// is not above the 20-character floor are dropped silently. An empty result
// is possible and is the caller's failure to handle.
func ChunkText(text string, maxTokens, overlapChars int) []TextChunk {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapChars < 0 {
		overlapChars = DefaultOverlapChars
	}

	maxChars := maxTokens * charsPerToken
	if overlapChars >= maxChars {
		overlapChars = maxChars / 4
	}

	// Candidates are merged up to the budget minus the overlap window so the
	// back-extension below cannot push a chunk over maxChars.
	budget := maxChars - overlapChars

	candidates := splitRecursive(text, budget, separators)

	chunks := make([]TextChunk, 0, len(candidates))
	cursor := 0
	for _, cand := range candidates {
		if cand == "" {
			continue
		}

		// Re-locate this candidate in the original text. It is an exact
		// substring, so the search only fails if something upstream went
		// wrong; the running cursor is the safe fallback.
		start := cursor
		if idx := strings.Index(text[cursor:], cand); idx >= 0 {
			start = cursor + idx
		}
		end := start + len(cand)
		cursor = end

		extStart := start - overlapChars
		if extStart < 0 {
			extStart = 0
		}

		sanitized := sanitizeText(text[extStart:end])
		tokens := ApproxTokenCount(sanitized)
		if tokens > maxTokens || len(sanitized) <= minChunkChars {
			continue
		}

		chunks = append(chunks, TextChunk{
			Text:       sanitized,
			StartChar:  extStart,
			EndChar:    end,
			TokenCount: tokens,
		})
	}

	return chunks
}

// splitRecursive breaks text into pieces no longer than budget, trying each
// separator in turn. Pieces produced at one level are merged back together
// (joined with that level's separator) up to the budget, so every returned
// piece is an exact substring of the input.
func splitRecursive(text string, budget int, seps []string) []string {
	if len(text) <= budget {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	sep := seps[0]
	rest := seps[1:]

	if sep == "" {
		// Character-level hard cut, the last resort.
		var out []string
		for len(text) > budget {
			out = append(out, text[:budget])
			text = text[budget:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	pieces := strings.Split(text, sep)

	var out []string
	var pending []string // adjacent small pieces awaiting a merge
	for _, piece := range pieces {
		if len(piece) <= budget {
			pending = append(pending, piece)
			continue
		}
		out = append(out, mergePieces(pending, sep, budget)...)
		pending = nil
		out = append(out, splitRecursive(piece, budget, rest)...)
	}
	out = append(out, mergePieces(pending, sep, budget)...)

	return out
}

// mergePieces greedily joins adjacent pieces with sep while staying within
// the budget. Empty pieces are kept so joins reconstruct the original
// substring, separators included.
func mergePieces(pieces []string, sep string, budget int) []string {
	if len(pieces) == 0 {
		return nil
	}

	var out []string
	var cur []string
	curLen := 0

	for _, p := range pieces {
		add := len(p)
		if len(cur) > 0 {
			add += len(sep)
		}
		if curLen+add > budget && len(cur) > 0 {
			out = append(out, strings.Join(cur, sep))
			cur = nil
			curLen = 0
			add = len(p)
		}
		cur = append(cur, p)
		curLen += add
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, sep))
	}
	return out
}

// sanitizeText strips control characters, keeping newlines and tabs.
func sanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
