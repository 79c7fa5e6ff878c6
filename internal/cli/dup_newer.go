//go:build linux && (arm64 || riscv64)

package cli

import "golang.org/x/sys/unix"

// These ports never had dup2; dup3 with zero flags is equivalent.
func dup2(oldfd, newfd int) error { return unix.Dup3(oldfd, newfd, 0) }
