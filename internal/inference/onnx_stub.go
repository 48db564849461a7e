//go:build !cgo
// +build !cgo

package inference

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX question answering requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXQuestionAnswerer stub type when built without CGO (see onnx_qa.go for real implementation).
type ONNXQuestionAnswerer struct{}

// NewONNXQuestionAnswerer returns an error when built without CGO (ONNX not available).
func NewONNXQuestionAnswerer(_ ONNXOptions) (*ONNXQuestionAnswerer, error) {
	return nil, errNoCGO
}

// Answer always fails without CGO.
func (q *ONNXQuestionAnswerer) Answer(context.Context, string, string) (*Answer, error) {
	return nil, errNoCGO
}

// Close is a no-op.
func (q *ONNXQuestionAnswerer) Close() error { return nil }
