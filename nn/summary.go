package nn

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Summary returns a table of the layers: index and type, input and output
// shapes, activation and parameter count, followed by totals.
//
//	Model: "or"
//	Layer (type)   Input shape   Output shape   Activation   Params
//	0 (Dense)      [2]           [4]            tanh         12
//	1 (Dense)      [4]           [1]            sigmoid      5
//	Total params: 17 (trainable: 17)
func (s *Sequential) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary()
}

func (s *Sequential) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: %q\n", s.cfg.name)

	tw := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tInput shape\tOutput shape\tActivation\tParams")
	var total, trainable int
	for i, l := range s.layers {
		act := "-"
		if a := l.Activation(); a != nil {
			act = a.Name()
		}
		in, out := "?", "?"
		if l.Built() {
			in = fmt.Sprint(l.InputShape())
			out = fmt.Sprint(l.OutputShape())
		}
		n := l.NumParams()
		total += n
		if l.Trainable() {
			trainable += n
		}
		fmt.Fprintf(tw, "%d (%s)\t%s\t%s\t%s\t%d\n", i, l.Name(), in, out, act, n)
	}
	tw.Flush()

	fmt.Fprintf(&b, "Total params: %d (trainable: %d)\n", total, trainable)
	if s.opt != nil && s.state.IsCompiled() {
		fmt.Fprintf(&b, "Optimizer: %s\n", s.opt.Info())
		fmt.Fprintf(&b, "Loss: %s\n", s.lossFn.Name())
	}
	return b.String()
}
