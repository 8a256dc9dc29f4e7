//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-transformer model through ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session     *ort.AdvancedSession
	dimensions  int
	maxTokens   int
	meanPooling bool
	tokenizer   Tokenizer

	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads cfg.ModelPath. With cfg.MeanPooling the model output is
// taken as per-token states of shape (1, maxTokens, dimensions) and averaged over
// the attention mask; otherwise it is a pooled (1, dimensions) vector.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	cfg = cfg.withDefaults()
	if err := initRuntime(); err != nil {
		return nil, err
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", cfg.MaxTokens)
	seq := int64(cfg.MaxTokens)

	var tensors []interface{ Destroy() error }
	cleanup := func() {
		for _, t := range tensors {
			_ = t.Destroy()
		}
	}

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	tensors = append(tensors, inputIDsTensor)
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, seq), attentionMask)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	tensors = append(tensors, attentionMaskTensor)
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), tokenTypeIDs)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	tensors = append(tensors, tokenTypeIDsTensor)

	outputShape := ort.NewShape(1, int64(cfg.Dimensions))
	if cfg.MeanPooling {
		outputShape = ort.NewShape(1, seq, int64(cfg.Dimensions))
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	tensors = append(tensors, outputTensor)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create ONNX session for %s: %w", cfg.ModelPath, err)
	}

	return &ONNXEmbedder{
		session:             session,
		dimensions:          cfg.Dimensions,
		maxTokens:           cfg.MaxTokens,
		meanPooling:         cfg.MeanPooling,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

func initRuntime() error {
	runtimeOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeErr = fmt.Errorf("initialize ONNX runtime: %w", err)
		}
	})
	return runtimeErr
}

// Embed runs the model on text and returns a unit-length vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("embedder closed")
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output := e.outputTensor.GetData()
	embedding := make([]float32, e.dimensions)
	if e.meanPooling {
		meanPool(embedding, output, attentionMask)
	} else {
		copy(embedding, output[:e.dimensions])
	}
	NormalizeL2Slice(embedding)
	return embedding, nil
}

// meanPool averages the token states selected by mask into dst.
func meanPool(dst, states []float32, mask []int64) {
	dims := len(dst)
	var count float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := states[tok*dims : (tok+1)*dims]
		for i, v := range row {
			dst[i] += v
		}
		count++
	}
	if count == 0 {
		return
	}
	for i := range dst {
		dst[i] /= count
	}
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	_ = e.inputIDsTensor.Destroy()
	_ = e.attentionMaskTensor.Destroy()
	_ = e.tokenTypeIDsTensor.Destroy()
	_ = e.outputTensor.Destroy()
	return err
}
