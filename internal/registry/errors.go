package registry

import "strings"

// networkError signals a failed catalog or download request. The message is
// already user-facing.
type networkError struct{ msg string }

func (e networkError) Error() string { return e.msg }

// ErrNetwork constructs a networkError.
func ErrNetwork(msg string) error { return networkError{msg: msg} }

// IsNetwork reports whether err indicates a connectivity or HTTP failure.
func IsNetwork(err error) bool {
	_, ok := err.(networkError)
	return ok
}

// notInCatalogError signals a model name absent from the remote catalog.
type notInCatalogError struct {
	name      string
	available []string
}

func (e notInCatalogError) Error() string {
	return "Model '" + e.name + "' not found.\nAvailable models: " + strings.Join(e.available, ", ")
}

// ErrNotInCatalog constructs a notInCatalogError carrying the names that do
// exist.
func ErrNotInCatalog(name string, available []string) error {
	return notInCatalogError{name: name, available: available}
}

// IsNotInCatalog reports whether err indicates an unknown model name.
func IsNotInCatalog(err error) bool {
	_, ok := err.(notInCatalogError)
	return ok
}

// diskWriteError signals a failure while persisting downloaded weights.
type diskWriteError struct{ cause error }

func (e diskWriteError) Error() string {
	if e.cause != nil {
		return "write model: " + e.cause.Error()
	}
	return "write model"
}

// ErrDiskWrite constructs a diskWriteError.
func ErrDiskWrite(cause error) error { return diskWriteError{cause: cause} }

// IsDiskWrite reports whether err indicates a failed write of model data.
func IsDiskWrite(err error) bool {
	_, ok := err.(diskWriteError)
	return ok
}

// overrideMissingError signals an explicit model path that does not exist.
// Explicit paths never fall through to the search order.
type overrideMissingError struct{ path string }

func (e overrideMissingError) Error() string { return "Model not found at: " + e.path }

// ErrOverrideMissing constructs an overrideMissingError.
func ErrOverrideMissing(path string) error { return overrideMissingError{path: path} }

// IsOverrideMissing reports whether err indicates a bad explicit model path.
func IsOverrideMissing(err error) bool {
	_, ok := err.(overrideMissingError)
	return ok
}

// modelNotFoundError signals that no search location held the model.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "Model '" + e.name + "' not found" }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether err indicates missing local weights.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}
