package apix

// Result is the uniform return value of every public operation. Exactly one of
// Data or Err is meaningful, discriminated by OK. Callers branch on OK and
// Err.Code instead of error types.
type Result[T any] struct {
	OK   bool
	Data T
	Err  *APIError
}

// Succeed wraps data in a successful Result.
func Succeed[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

// Fail wraps an APIError in a failed Result.
func Fail[T any](err *APIError) Result[T] {
	return Result[T]{OK: false, Err: err}
}

// Unwrap returns the data and a conventional error for callers that prefer
// Go's two-value idiom over branching on OK.
func (r Result[T]) Unwrap() (T, error) {
	if r.OK {
		return r.Data, nil
	}
	return r.Data, r.Err
}

// Empty is the response type for calls whose body is irrelevant (DELETE).
type Empty struct{}
