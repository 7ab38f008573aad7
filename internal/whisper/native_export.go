//go:build whispercpp

package whisper

/*
#include <stddef.h>
#include <stdbool.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

// adapterFrom recovers the stream adapter from the loader's context pointer.
// The pointer is the address of a cgo.Handle that stays alive for the whole
// initialisation call.
func adapterFrom(ctx unsafe.Pointer) *streamAdapter {
	if ctx == nil {
		return nil
	}
	handle := *(*cgo.Handle)(ctx)
	if handle == 0 {
		return nil
	}
	adapter, ok := handle.Value().(*streamAdapter)
	if !ok {
		return nil
	}
	return adapter
}

//export whisperbindLoaderRead
func whisperbindLoaderRead(ctx unsafe.Pointer, output unsafe.Pointer, readSize C.size_t) C.size_t {
	adapter := adapterFrom(ctx)
	if adapter == nil || output == nil || readSize == 0 {
		return 0
	}
	dst := unsafe.Slice((*byte)(output), int(readSize))
	return C.size_t(adapter.fill(dst))
}

//export whisperbindLoaderEOF
func whisperbindLoaderEOF(ctx unsafe.Pointer) C.bool {
	adapter := adapterFrom(ctx)
	if adapter == nil {
		return C.bool(true)
	}
	return C.bool(adapter.eof())
}

//export whisperbindLoaderClose
func whisperbindLoaderClose(ctx unsafe.Pointer) {
	if adapter := adapterFrom(ctx); adapter != nil {
		adapter.release()
	}
}
