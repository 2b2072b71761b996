// Package reader loads the type information embedded in a built curdle
// library.
package reader

import "github.com/coreos/pkg/dlopen"

// #include <stdlib.h>
import "C"

// ReadTypeInfo opens the shared object at from and returns the contents of
// symbol, which must be a NUL-terminated string.
func ReadTypeInfo(from, symbol string) (string, error) {
	handle, err := dlopen.GetHandle([]string{from})
	if err != nil {
		return "", err
	}
	defer handle.Close()

	sym, err := handle.GetSymbolPointer(symbol)
	if err != nil {
		return "", err
	}

	return C.GoString((*C.char)(sym)), nil
}
