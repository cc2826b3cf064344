package layer

import (
	"github.com/YuminosukeSato/neurago/nn/activation"
)

type config struct {
	act        activation.Activation
	actName    string
	useBias    bool
	inputShape []int
	stride     [2]int
}

// Option configures a layer at construction.
type Option func(*config)

func defaultConfig() *config {
	return &config{act: activation.Linear(), useBias: true}
}

// WithActivation sets the activation applied to the layer's pre-activation
// sum. The default is linear.
func WithActivation(act activation.Activation) Option {
	return func(c *config) {
		c.act = act
		c.actName = ""
	}
}

// WithActivationName resolves the activation by name when the layer is
// constructed; an unknown name makes the constructor fail.
func WithActivationName(name string) Option {
	return func(c *config) {
		c.actName = name
	}
}

// WithBias enables or disables the bias term. Enabled by default.
func WithBias(useBias bool) Option {
	return func(c *config) {
		c.useBias = useBias
	}
}

// WithInputShape builds the layer immediately for the given input shape.
// The first layer of a model needs it.
func WithInputShape(shape ...int) Option {
	return func(c *config) {
		c.inputShape = append([]int(nil), shape...)
	}
}

// WithStride sets the pooling stride. The default equals the pool size.
func WithStride(rows, cols int) Option {
	return func(c *config) {
		c.stride = [2]int{rows, cols}
	}
}

func (c *config) resolve() error {
	if c.actName != "" {
		act, err := activation.Get(c.actName)
		if err != nil {
			return err
		}
		c.act = act
	}
	if c.act == nil {
		c.act = activation.Linear()
	}
	return nil
}
