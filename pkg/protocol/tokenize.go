package protocol

// DefaultMaxLength is applied when a tokenize request omits max_length.
const DefaultMaxLength = 512

// TokenizeBulkRequest is the body of POST /tokenize_bulk. Prompts and
// responses are paired index-for-index and must have the same length.
type TokenizeBulkRequest struct {
	Prompts   []string `json:"prompts"`
	Responses []string `json:"responses"`
	// Truncation defaults to true when omitted.
	Truncation *bool  `json:"truncation,omitempty"`
	MaxLength  int    `json:"max_length,omitempty"`
	Repo       string `json:"repo,omitempty"`
}

// Truncate reports the effective truncation flag.
func (r TokenizeBulkRequest) Truncate() bool {
	if r.Truncation == nil {
		return true
	}
	return *r.Truncation
}

// EffectiveMaxLength reports the effective row length limit.
func (r TokenizeBulkRequest) EffectiveMaxLength() int {
	if r.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return r.MaxLength
}

// TokenizeBulkResponse carries one id row and one mask row per input pair.
// Rows are not padded; consumers batch and pad as they see fit.
type TokenizeBulkResponse struct {
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
}

// InfoResponse is returned by GET /info and GET /version.
type InfoResponse struct {
	Service               string  `json:"service"`
	Source                string  `json:"source"`
	LocalOnly             bool    `json:"local_only"`
	BackendTokenizerMD5   string  `json:"backend_tokenizer_md5"`
	PaddingSide           string  `json:"padding_side"`
	TruncationSide        string  `json:"truncation_side"`
	LocalTokenizerJSONMD5 *string `json:"local_tokenizer_json_md5"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the error envelope for every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PinResponse is returned by the pinning proxy after a successful upload.
type PinResponse struct {
	CID        string `json:"cid"`
	URI        string `json:"uri"`
	GatewayURL string `json:"gateway_url"`
}

// PinVersionResponse is returned by the pinning proxy's GET /version.
type PinVersionResponse struct {
	Service  string `json:"service"`
	Provider string `json:"provider"`
}
