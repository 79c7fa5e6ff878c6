package llm

import "strconv"

// modelLoadError signals that the backend could not load the model file.
type modelLoadError struct {
	path  string
	cause error
}

func (e modelLoadError) Error() string {
	if e.cause != nil {
		return "load model " + e.path + ": " + e.cause.Error()
	}
	return "load model " + e.path
}

// ErrModelLoad constructs a modelLoadError.
func ErrModelLoad(path string, cause error) error { return modelLoadError{path: path, cause: cause} }

// IsModelLoad reports whether err indicates a model that failed to load.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}

// inferenceError signals a backend failure while generating.
type inferenceError struct{ cause error }

func (e inferenceError) Error() string {
	if e.cause != nil {
		return "inference failed: " + e.cause.Error()
	}
	return "inference failed"
}

// ErrInference constructs an inferenceError.
func ErrInference(cause error) error { return inferenceError{cause: cause} }

// IsInference reports whether err indicates a failed generation.
func IsInference(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}

// contextOverflowError signals a prompt that cannot fit the context window
// even after truncation.
type contextOverflowError struct{ needed, budget int }

func (e contextOverflowError) Error() string {
	return "prompt too large for context window: needs ~" + strconv.Itoa(e.needed) +
		" tokens, budget " + strconv.Itoa(e.budget)
}

// ErrContextOverflow constructs a contextOverflowError.
func ErrContextOverflow(needed, budget int) error {
	return contextOverflowError{needed: needed, budget: budget}
}

// IsContextOverflow reports whether err indicates an unfittable prompt.
func IsContextOverflow(err error) bool {
	_, ok := err.(contextOverflowError)
	return ok
}

// dependencyUnavailableError signals a missing runtime dependency, such as a
// build without llama support.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing or failed
// runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}
