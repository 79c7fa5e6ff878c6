//go:build !linux && !darwin

package cli

// silenceStderr is a no-op where fd redirection is not portable.
func silenceStderr() func() { return func() {} }
