// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
//
// The taxonomy mirrors the failure classes of the training engine:
// ConfigurationError for lifecycle misuse (predict before compile, nil
// collaborators), ShapeMismatchError for tensor/layer/loss shape
// disagreements and ArgumentError for invalid hyperparameters. Every
// constructor attaches a stack trace through cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("neurago-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the library-wide warning handler.
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. A zerolog sink registered through SetZerologWarnFunc
// takes precedence over the plain handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// WorkerCountWarning is raised when a worker pool is sized above the number
// of available CPUs.
type WorkerCountWarning struct {
	Requested int
	Available int
}

func (w *WorkerCountWarning) Error() string {
	return fmt.Sprintf("worker pool sized to %d workers but only %d CPUs are available; expect contention", w.Requested, w.Available)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *WorkerCountWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("requested", w.Requested).
		Int("available", w.Available).
		Str("type", "WorkerCountWarning")
}

// NewWorkerCountWarning は新しいWorkerCountWarningを作成します。
func NewWorkerCountWarning(requested, available int) *WorkerCountWarning {
	return &WorkerCountWarning{Requested: requested, Available: available}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ConfigurationError reports an operation invoked in the wrong lifecycle
// state, such as Predict on a model that has not been compiled, or a nil
// collaborator handed to Compile.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("neurago: %s: configuration error: %s", e.Op, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(op, reason string) error {
	return errors.WithStack(&ConfigurationError{Op: op, Reason: reason})
}

// NewNotCompiledError is the ConfigurationError returned by every operation
// that needs a compiled model.
func NewNotCompiledError(op string) error {
	return NewConfigurationError(op, "model is not compiled. Call Compile() first")
}

// ShapeMismatchError reports operands whose shapes disagree.
type ShapeMismatchError struct {
	Op       string
	Expected []int
	Got      []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("neurago: %s: shape mismatch. Expected %v, got %v", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ShapeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Ints("expected", e.Expected).
		Ints("got", e.Got).
		Str("type", "ShapeMismatchError")
}

// NewShapeMismatchError は新しいShapeMismatchErrorを作成し、スタックトレースを付与します。
// The shapes are copied so later mutation by the caller cannot alter the report.
func NewShapeMismatchError(op string, expected, got []int) error {
	err := &ShapeMismatchError{
		Op:       op,
		Expected: append([]int(nil), expected...),
		Got:      append([]int(nil), got...),
	}
	return errors.WithStack(err)
}

// ArgumentError reports an invalid hyperparameter or argument value.
type ArgumentError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("neurago: invalid argument '%s': %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ArgumentError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ArgumentError")
}

// NewArgumentError は新しいArgumentErrorを作成し、スタックトレースを付与します。
func NewArgumentError(param, reason string, value interface{}) error {
	return errors.WithStack(&ArgumentError{Param: param, Reason: reason, Value: value})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフローなどを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "epoch_loss", "gradient_check"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号（エポック）
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("neurago: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Int("iteration", e.Iteration).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	判定ヘルパー
//
// ===========================================================================

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsShapeMismatch reports whether err carries a ShapeMismatchError.
func IsShapeMismatch(err error) bool {
	var target *ShapeMismatchError
	return errors.As(err, &target)
}

// IsArgumentError reports whether err carries an ArgumentError.
func IsArgumentError(err error) bool {
	var target *ArgumentError
	return errors.As(err, &target)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrPoolClosed is returned when work is submitted to a closed worker pool.
	ErrPoolClosed = New("worker pool is closed")
)
