package tokenize

// EstimateTokens approximates a byte-pair-style token count for text:
// words longer than 4 bytes are charged extra sub-word splits, since a
// real BPE vocabulary would split them into multiple pieces. Short
// non-word runs (punctuation, whitespace) are not counted on their own.
//
// This is an approximation, not a real BPE encoder — no pack dependency
// implements one, and the fallback of len/4 specified for degenerate
// input is used directly when text is empty of word tokens.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	count := 0
	IterBytes([]byte(text), nil, func(tok []byte) bool {
		count += subwordPieces(len(tok))
		return true
	})
	if count == 0 {
		return len(text) / 4
	}
	return count
}

// subwordPieces estimates how many BPE pieces a word of n bytes would
// split into, assuming an average piece length of 4 bytes once the word
// exceeds a single short piece.
func subwordPieces(n int) int {
	if n <= 4 {
		return 1
	}
	pieces := n / 4
	if n%4 != 0 {
		pieces++
	}
	return pieces
}
