// Package model provides the lifecycle state and the shared contracts of
// neurago models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// StateManager tracks whether a model has been compiled, in a thread-safe manner.
// Models embed it by composition rather than inheritance.
type StateManager struct {
	Compiled bool
	mu       sync.RWMutex

	// Optional metadata recorded at compile time
	NLayers int
	NParams int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{
		Compiled: false,
	}
}

// IsCompiled returns whether the model has been compiled.
func (s *StateManager) IsCompiled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Compiled
}

// SetCompiled marks the model as compiled and records its dimensions.
func (s *StateManager) SetCompiled(nLayers, nParams int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Compiled = true
	s.NLayers = nLayers
	s.NParams = nParams
}

// Reset returns the model to the uncompiled state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Compiled = false
	s.NLayers = 0
	s.NParams = 0
}

// GetDimensions returns the layer and parameter counts seen at compile time.
func (s *StateManager) GetDimensions() (nLayers, nParams int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NLayers, s.NParams
}

// RequireCompiled returns a ConfigurationError naming op if the model has not
// been compiled.
func (s *StateManager) RequireCompiled(op string) error {
	if !s.IsCompiled() {
		return errors.NewNotCompiledError(op)
	}
	return nil
}

// ModelState represents the complete lifecycle state of a model.
type ModelState struct {
	Compiled bool `json:"compiled"`
	NLayers  int  `json:"n_layers,omitempty"`
	NParams  int  `json:"n_params,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		Compiled: s.Compiled,
		NLayers:  s.NLayers,
		NParams:  s.NParams,
	}
}
