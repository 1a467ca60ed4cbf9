// Package version reports the build of the running dagflow binary.
//
// Release builds stamp it through -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/dagflow/version.Version=1.4.0" ./cmd/dagflowd
//
// Unstamped builds fall back to the VCS settings recorded by the Go
// toolchain.
package version
