// Package tokenizer decides which tokenizer artifact to load, memoizes the
// loaded instance, and encodes prompt/response pairs for the HTTP surface.
package tokenizer

// Encoder is the narrow surface the service needs from a loaded tokenizer.
// It hides the tokenizer library behind exactly the operations the core
// uses: paired batch encoding, backend serialization for fingerprinting,
// and the informational padding/truncation sides.
type Encoder interface {
	// EncodePairs tokenizes prompts[i] together with responses[i] into one
	// id row and one mask row per pair. Special tokens are added, rows are
	// not padded, and rows never exceed maxLength when truncate is set.
	// Both slices must have the same length; the caller validates that.
	EncodePairs(prompts, responses []string, truncate bool, maxLength int) (ids [][]int, mask [][]int, err error)

	// BackendJSON returns the serialized backend state the encoder was
	// built from, suitable for fingerprinting.
	BackendJSON() []byte

	PaddingSide() string
	TruncationSide() string
}
