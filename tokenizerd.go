// Package tokenizerd fronts a pretrained tokenizer behind a small HTTP
// service so training and evaluation pipelines can fetch token ids and
// attention masks without loading the tokenizer themselves.
package tokenizerd

// Version of the tokenizer service, reported by GET /info.
const Version = "1.1.0"
