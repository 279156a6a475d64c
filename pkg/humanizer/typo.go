package humanizer

import "strings"

// correctionChance is how often a typo is followed by the fixed word with a
// trailing asterisk, WhatsApp's folk convention for corrections.
const correctionChance = 0.7

// adjacentKeys maps each letter to its QWERTY neighbors.
var adjacentKeys = map[rune]string{
	'a': "sq", 'b': "vn", 'c': "xv", 'd': "sf", 'e': "wr", 'f': "dg",
	'g': "fh", 'h': "gj", 'i': "uo", 'j': "hk", 'k': "jl", 'l': "k",
	'm': "n", 'n': "bm", 'o': "ip", 'p': "o", 'q': "wa", 'r': "et",
	's': "ad", 't': "ry", 'u': "yi", 'v': "cb", 'w': "qe", 'x': "zc",
	'y': "tu", 'z': "x",
}

// maybeTypo applies the typo policy to one chunk: with a small probability a
// single word is mangled, and usually a correction chunk follows.
func (h *Humanizer) maybeTypo(text string, profile moodProfile) (chunks []string) {
	if !h.chance(h.cfg.TypoRate * profile.typo) {
		return []string{text}
	}

	words := strings.Fields(text)
	candidates := make([]int, 0, len(words))
	for i, w := range words {
		if len([]rune(w)) > 2 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return []string{text}
	}

	idx := candidates[h.intn(len(candidates))]
	original := words[idx]
	mangled := h.mangle(original)
	if mangled == original {
		return []string{text}
	}

	words[idx] = mangled
	chunks = []string{strings.Join(words, " ")}
	if h.chance(correctionChance) {
		chunks = append(chunks, original+"*")
	}
	return chunks
}

// mangle applies one of three error kinds at a non-edge position.
func (h *Humanizer) mangle(word string) string {
	runes := []rune(word)
	pos := 1 + h.intn(len(runes)-2)

	switch h.intn(3) {
	case 0: // adjacent key
		if neighbors := adjacentKeys[runes[pos]]; neighbors != "" {
			ns := []rune(neighbors)
			runes[pos] = ns[h.intn(len(ns))]
		}
	case 1: // transposed neighbors
		runes[pos], runes[pos-1] = runes[pos-1], runes[pos]
	case 2: // dropped char
		runes = append(runes[:pos], runes[pos+1:]...)
	}
	return string(runes)
}
