package inference

// ONNXOptions configures the local extractive question answerer.
type ONNXOptions struct {
	ModelPath   string
	VocabPath   string
	LibraryPath string
	// MaxSeqLen is the model's fixed sequence length.
	MaxSeqLen int
	// DocStride is how many context tokens consecutive windows share.
	DocStride int
	// MaxAnswerTokens bounds the answer span length.
	MaxAnswerTokens int
	// UseTokenTypeIDs feeds token_type_ids (BERT); DistilBERT exports omit it.
	UseTokenTypeIDs bool
	Lowercase       bool
}

func (o *ONNXOptions) applyDefaults() {
	if o.MaxSeqLen <= 0 {
		o.MaxSeqLen = 384
	}
	if o.DocStride < 0 || o.DocStride >= o.MaxSeqLen {
		o.DocStride = 128
	}
	if o.MaxAnswerTokens <= 0 {
		o.MaxAnswerTokens = 15
	}
}
