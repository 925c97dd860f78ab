//go:build !(darwin || freebsd || linux)

package builder

import (
	"errors"
	"runtime"
)

var errUnsupportedPlatform = errors.New("dynamic loading is not supported on " + runtime.GOOS)

func dlopen(string) (uintptr, error) { return 0, errUnsupportedPlatform }
func dlsym(uintptr, string) (uintptr, error) { return 0, errUnsupportedPlatform }
func dlclose(uintptr) error { return nil }
func bindFunc(any, uintptr) error { return errUnsupportedPlatform }
