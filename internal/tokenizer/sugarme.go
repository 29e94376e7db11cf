package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// hfEncoder wraps a HuggingFace-compatible tokenizer.json loaded with the
// pure-Go tokenizer library.
type hfEncoder struct {
	// The library keeps truncation settings on the tokenizer itself, so
	// configuring per-request truncation and encoding must not interleave.
	mu    sync.Mutex
	inner *tk.Tokenizer

	raw            []byte
	paddingSide    string
	truncationSide string
}

// NewEncoderFromFile loads a tokenizer.json artifact.
func NewEncoderFromFile(path string) (Encoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer artifact: %w", err)
	}
	inner, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	paddingSide, truncationSide := sidesFromArtifact(raw)
	return &hfEncoder{
		inner:          inner,
		raw:            raw,
		paddingSide:    paddingSide,
		truncationSide: truncationSide,
	}, nil
}

func (e *hfEncoder) EncodePairs(prompts, responses []string, truncate bool, maxLength int) ([][]int, [][]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if truncate && maxLength > 0 {
		e.inner.WithTruncation(&tk.TruncationParams{MaxLength: maxLength})
	} else {
		e.inner.WithTruncation(nil)
	}

	ids := make([][]int, len(prompts))
	mask := make([][]int, len(prompts))
	for i := range prompts {
		input := tk.NewDualEncodeInput(
			tk.NewInputSequence(prompts[i]),
			tk.NewInputSequence(responses[i]),
		)
		encoding, err := e.inner.Encode(input, true)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode pair %d: %w", i, err)
		}
		ids[i] = append([]int(nil), encoding.GetIds()...)
		mask[i] = append([]int(nil), encoding.GetAttentionMask()...)
	}
	return ids, mask, nil
}

func (e *hfEncoder) BackendJSON() []byte {
	return e.raw
}

func (e *hfEncoder) PaddingSide() string { return e.paddingSide }

func (e *hfEncoder) TruncationSide() string { return e.truncationSide }

// sidesFromArtifact reads the informational padding/truncation directions
// from a tokenizer.json document. HuggingFace tokenizers default to "right"
// when the sections are absent.
func sidesFromArtifact(raw []byte) (paddingSide, truncationSide string) {
	var doc struct {
		Padding *struct {
			Direction string `json:"direction"`
		} `json:"padding"`
		Truncation *struct {
			Direction string `json:"direction"`
		} `json:"truncation"`
	}
	paddingSide, truncationSide = "right", "right"
	if err := json.Unmarshal(raw, &doc); err != nil {
		return paddingSide, truncationSide
	}
	if doc.Padding != nil && doc.Padding.Direction != "" {
		paddingSide = strings.ToLower(doc.Padding.Direction)
	}
	if doc.Truncation != nil && doc.Truncation.Direction != "" {
		truncationSide = strings.ToLower(doc.Truncation.Direction)
	}
	return paddingSide, truncationSide
}
