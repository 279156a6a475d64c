package humanizer

import (
	"strings"
	"unicode"
)

// Question openers and self-introduction markers used by break scoring,
// tuned to Brazilian Portuguese.
var (
	questionOpeners = map[string]bool{
		"qual": true, "quais": true, "quanto": true, "quanta": true,
		"como": true, "onde": true, "quando": true, "quem": true,
		"você": true, "voce": true, "posso": true, "pode": true, "e": true,
	}
	selfIntroMarkers = map[string]bool{
		"chamo": true, "nome": true, "sou": true, "solarprime": true,
	}
	connectorWords = map[string]bool{
		"então": true, "entao": true, "olha": true, "aliás": true,
		"alias": true, "enfim": true, "inclusive": true, "agora": true,
	}
)

const (
	breakAcceptScore = 0.6
	breakLuckChance  = 0.3
)

// chunkSemantic splits at scored natural break points. Candidates sit after
// sentence terminators and connector phrases; each is scored by the shape of
// the chunk it would close and the words around it.
func (h *Humanizer) chunkSemantic(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for i := 0; i < len(words)-1; i++ {
		if !isBreakCandidate(words, i) {
			continue
		}
		score, properName := scoreBreak(words, start, i)
		if properName {
			continue
		}
		if score > breakAcceptScore || (score > 0.3 && h.chance(breakLuckChance)) {
			chunks = append(chunks, strings.Join(words[start:i+1], " "))
			start = i + 1
		}
	}
	if start < len(words) {
		chunks = append(chunks, strings.Join(words[start:], " "))
	}
	return chunks
}

// isBreakCandidate reports whether a break may occur after words[i].
func isBreakCandidate(words []string, i int) bool {
	w := words[i]
	if strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") ||
		strings.HasSuffix(w, "?") || strings.HasSuffix(w, "…") {
		return true
	}
	if strings.HasSuffix(w, ",") {
		next := normalizeWord(words[i+1])
		return questionOpeners[next] || connectorWords[next]
	}
	return false
}

// scoreBreak rates the candidate break after words[i] in [0,1]. properName
// is true when the break would land between two consecutive capitalized
// tokens; those positions are never broken voluntarily.
func scoreBreak(words []string, start, i int) (score float64, properName bool) {
	if isCapitalized(words[i]) && i+1 < len(words) && isCapitalized(words[i+1]) {
		return 0, true
	}

	score = 0.4
	preceding := i - start + 1
	switch {
	case preceding >= 3 && preceding <= 12:
		score += 0.3
	case preceding < 2 || preceding > 20:
		score -= 0.3
	}
	if selfIntroMarkers[normalizeWord(words[i])] ||
		(i > start && selfIntroMarkers[normalizeWord(words[i-1])]) {
		score += 0.2
	}
	if questionOpeners[normalizeWord(words[i+1])] {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, false
}

// chunkByLength is the locale-agnostic fallback: split at sentence
// terminators and pack into the configured word range.
func (h *Humanizer) chunkByLength(text string) []string {
	sentences := splitSentences(text)
	var chunks []string
	var current []string
	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		if len(current) > 0 && len(current)+len(words) > h.cfg.ChunkWordMax {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
		current = append(current, words...)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '…' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// normalizeChunks enforces the configured word range: undersized chunks merge
// into a neighbor and oversized ones split at the friendliest position. A
// short opener has no previous chunk, so it carries forward into the next.
func (h *Humanizer) normalizeChunks(chunks []string) []string {
	var merged []string
	carry := ""
	for _, chunk := range chunks {
		if carry != "" {
			chunk = carry + " " + chunk
			carry = ""
		}
		if len(strings.Fields(chunk)) < h.cfg.ChunkWordMin {
			if len(merged) > 0 {
				merged[len(merged)-1] += " " + chunk
			} else {
				carry = chunk
			}
			continue
		}
		merged = append(merged, chunk)
	}
	if carry != "" {
		// The whole reply is shorter than the minimum; send it as is.
		merged = append(merged, carry)
	}

	var out []string
	for _, chunk := range merged {
		out = append(out, h.splitOversized(chunk)...)
	}
	return out
}

// splitOversized cuts a too-long chunk at the best position near the word
// cap, avoiding trailing commas and proper-name pairs when any alternative
// exists.
func (h *Humanizer) splitOversized(chunk string) []string {
	words := strings.Fields(chunk)
	if len(words) <= h.cfg.ChunkWordMax {
		return []string{chunk}
	}

	// Keep the remainder at or above the minimum so the split never
	// produces a dangling short tail.
	cut := h.cfg.ChunkWordMax
	if rest := len(words) - h.cfg.ChunkWordMin; rest < cut {
		cut = rest
	}
	best := -1
	for i := cut - 1; i >= h.cfg.ChunkWordMin-1; i-- {
		if strings.HasSuffix(words[i], ",") {
			continue
		}
		if isCapitalized(words[i]) && isCapitalized(words[i+1]) {
			continue
		}
		best = i
		break
	}
	if best < 0 {
		best = cut - 1
	}

	head := strings.Join(words[:best+1], " ")
	rest := strings.Join(words[best+1:], " ")
	return append([]string{head}, h.splitOversized(rest)...)
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}))
}

func isCapitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}
