package embedding

// ONNXConfig describes a local sentence-transformer model.
type ONNXConfig struct {
	ModelPath   string
	Dimensions  int
	MaxTokens   int
	OutputName  string
	MeanPooling bool
}

func (c ONNXConfig) withDefaults() ONNXConfig {
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 128
	}
	if c.OutputName == "" {
		c.OutputName = "last_hidden_state"
		c.MeanPooling = true
	}
	return c
}
