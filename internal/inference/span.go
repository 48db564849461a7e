package inference

import (
	"context"
	"fmt"

	"github.com/hyperjump/tanya/pkg/utils"
)

// qaWindow is one model input: [CLS] question [SEP] context-slice [SEP] padding.
type qaWindow struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	// ctxStart is the position of the first context token in the sequence.
	ctxStart int
	// ctxTokens are the context tokens in this window, in sequence order.
	ctxTokens []Token
}

// buildWindows lays the question and context out over fixed-length sequences. Long contexts
// are covered by overlapping windows; consecutive windows share stride context tokens.
func (w *WordPiece) buildWindows(question, context []Token, seqLen, stride int) ([]qaWindow, error) {
	maxQuestion := seqLen / 2
	if len(question) > maxQuestion {
		question = question[:maxQuestion]
	}
	ctxRoom := seqLen - len(question) - 3
	if ctxRoom < 1 {
		return nil, fmt.Errorf("max sequence length %d too small for question of %d tokens", seqLen, len(question))
	}
	step := ctxRoom - stride
	if step < 1 {
		step = ctxRoom
	}

	var windows []qaWindow
	for off := 0; ; off += step {
		end := min(off+ctxRoom, len(context))
		win := qaWindow{
			inputIDs:      make([]int64, seqLen),
			attentionMask: make([]int64, seqLen),
			tokenTypeIDs:  make([]int64, seqLen),
			ctxStart:      len(question) + 2,
			ctxTokens:     context[off:end],
		}
		pos := 0
		put := func(id int64, segment int64) {
			win.inputIDs[pos] = id
			win.attentionMask[pos] = 1
			win.tokenTypeIDs[pos] = segment
			pos++
		}
		put(w.clsID, 0)
		for _, t := range question {
			put(t.ID, 0)
		}
		put(w.sepID, 0)
		for _, t := range win.ctxTokens {
			put(t.ID, 1)
		}
		put(w.sepID, 1)
		for i := pos; i < seqLen; i++ {
			win.inputIDs[i] = w.padID
		}
		windows = append(windows, win)
		if end >= len(context) {
			break
		}
	}
	return windows, nil
}

// bestSpan picks the start and end positions in [lo, hi) maximizing p(start)*p(end) with
// start <= end < start+maxLen. Probabilities are a softmax over the context positions only.
func bestSpan(startLogits, endLogits []float32, lo, hi, maxLen int) (start, end int, score float64) {
	if lo >= hi {
		return -1, -1, 0
	}
	ps := utils.Softmax(startLogits[lo:hi])
	pe := utils.Softmax(endLogits[lo:hi])
	start, end = -1, -1
	for s := range ps {
		for e := s; e < len(pe) && e < s+maxLen; e++ {
			if p := float64(ps[s]) * float64(pe[e]); p > score {
				start, end, score = s, e, p
			}
		}
	}
	if start < 0 {
		return -1, -1, 0
	}
	return lo + start, lo + end, score
}

// logitsFunc runs the model on one window and returns start and end logits per position.
type logitsFunc func(ctx context.Context, w qaWindow) (start, end []float32, err error)

// extractAnswer scores every window and returns the best span cut from passage.
func extractAnswer(ctx context.Context, passage string, windows []qaWindow, maxAnswer int, run logitsFunc) (*Answer, error) {
	var best *Answer
	for _, win := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		startLogits, endLogits, err := run(ctx, win)
		if err != nil {
			return nil, err
		}
		lo := win.ctxStart
		hi := lo + len(win.ctxTokens)
		if hi > len(startLogits) || hi > len(endLogits) {
			return nil, fmt.Errorf("model returned %d logits for %d positions", len(startLogits), hi)
		}
		s, e, score := bestSpan(startLogits, endLogits, lo, hi, maxAnswer)
		if s < 0 {
			continue
		}
		if best == nil || score > best.Score {
			first, last := win.ctxTokens[s-lo], win.ctxTokens[e-lo]
			best = &Answer{
				Text:  passage[first.Start:last.End],
				Score: score,
				Start: first.Start,
				End:   last.End,
			}
		}
	}
	if best == nil {
		return &Answer{}, nil
	}
	return best, nil
}
