// Package wasmenc encodes small WebAssembly core modules: function types and
// imports, functions, one memory, constant-initialized globals, exports and
// active data segments. It is enough to produce guest modules for the demo
// and for tests without a toolchain.
package wasmenc
