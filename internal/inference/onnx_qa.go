//go:build cgo
// +build cgo

package inference

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXQuestionAnswerer runs a SQuAD-style extractive QA model with ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type ONNXQuestionAnswerer struct {
	session   *ort.AdvancedSession
	tokenizer *WordPiece
	opts      ONNXOptions
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	startLogitsTensor   *ort.Tensor[float32]
	endLogitsTensor     *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXQuestionAnswerer loads the vocabulary and model. InitializeEnvironment is called if
// not already done.
func NewONNXQuestionAnswerer(opts ONNXOptions) (*ONNXQuestionAnswerer, error) {
	opts.applyDefaults()
	vocab, err := LoadVocab(opts.VocabPath)
	if err != nil {
		return nil, err
	}
	tokenizer, err := NewWordPiece(vocab, opts.Lowercase)
	if err != nil {
		return nil, err
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	q := &ONNXQuestionAnswerer{tokenizer: tokenizer, opts: opts}
	shape := ort.NewShape(1, int64(opts.MaxSeqLen))
	if q.inputIDsTensor, err = ort.NewEmptyTensor[int64](shape); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if q.attentionMaskTensor, err = ort.NewEmptyTensor[int64](shape); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if q.startLogitsTensor, err = ort.NewEmptyTensor[float32](shape); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to create start_logits tensor: %w", err)
	}
	if q.endLogitsTensor, err = ort.NewEmptyTensor[float32](shape); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to create end_logits tensor: %w", err)
	}

	inputNames := []string{"input_ids", "attention_mask"}
	inputs := []ort.ArbitraryTensor{q.inputIDsTensor, q.attentionMaskTensor}
	if opts.UseTokenTypeIDs {
		if q.tokenTypeIDsTensor, err = ort.NewEmptyTensor[int64](shape); err != nil {
			q.Close()
			return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputs = append(inputs, q.tokenTypeIDsTensor)
	}

	q.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		inputNames,
		[]string{"start_logits", "end_logits"},
		inputs,
		[]ort.ArbitraryTensor{q.startLogitsTensor, q.endLogitsTensor},
		nil,
	)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return q, nil
}

// Answer returns the highest scoring span of passage across all windows.
func (q *ONNXQuestionAnswerer) Answer(ctx context.Context, question, passage string) (*Answer, error) {
	if err := CheckQuestion(question, passage); err != nil {
		return nil, err
	}
	windows, err := q.tokenizer.buildWindows(
		q.tokenizer.Tokenize(question),
		q.tokenizer.Tokenize(passage),
		q.opts.MaxSeqLen,
		q.opts.DocStride,
	)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return extractAnswer(ctx, passage, windows, q.opts.MaxAnswerTokens, q.run)
}

func (q *ONNXQuestionAnswerer) run(_ context.Context, w qaWindow) ([]float32, []float32, error) {
	copy(q.inputIDsTensor.GetData(), w.inputIDs)
	copy(q.attentionMaskTensor.GetData(), w.attentionMask)
	if q.tokenTypeIDsTensor != nil {
		copy(q.tokenTypeIDsTensor.GetData(), w.tokenTypeIDs)
	}
	if err := q.session.Run(); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	start := append([]float32(nil), q.startLogitsTensor.GetData()...)
	end := append([]float32(nil), q.endLogitsTensor.GetData()...)
	return start, end, nil
}

// Close destroys the session and tensors.
func (q *ONNXQuestionAnswerer) Close() error {
	var err error
	if q.session != nil {
		err = q.session.Destroy()
		q.session = nil
	}
	destroy(&q.inputIDsTensor)
	destroy(&q.attentionMaskTensor)
	destroy(&q.tokenTypeIDsTensor)
	destroy(&q.startLogitsTensor)
	destroy(&q.endLogitsTensor)
	return err
}

func destroy[T ort.TensorData](t **ort.Tensor[T]) {
	if *t != nil {
		_ = (*t).Destroy()
		*t = nil
	}
}
