// Package ext provides optional function packs that go beyond the standard
// library, and the glue to layer them onto a registry.
//
// The packs live in sub-packages:
//   - extcrypto: uuid, hash, hmac
//   - extwasm: numeric exports of a WebAssembly module
//
// # Integration
//
//	mod, err := extwasm.Load(ctx, wasmBytes, extwasm.WithPrefix("wasm_"))
//	reg, err := ext.Build(stdlib.Default(), extcrypto.Extension(), mod.Extension())
//	ev := evaluator.New(evaluator.WithRegistry(reg))
package ext

import (
	"fmt"

	"github.com/grauwen/utl-x-sub015/pkg/ext/extcrypto"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
)

// All returns the packs that need no configuration.
func All() []functions.Extension {
	return []functions.Extension{extcrypto.Extension()}
}

// Build returns a new registry holding the functions of base plus those
// contributed by exts. base may be nil. Name clashes are errors: an
// extension cannot replace a function already registered.
func Build(base *functions.Registry, exts ...functions.Extension) (*functions.Registry, error) {
	b := functions.NewBuilder()
	if base != nil {
		b = functions.NewBuilderFrom(base)
	}
	for i, ext := range exts {
		if ext == nil {
			continue
		}
		if err := ext(b); err != nil {
			return nil, fmt.Errorf("extension %d: %w", i, err)
		}
	}
	return b.Build(), nil
}
