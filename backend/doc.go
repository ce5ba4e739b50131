// Package backend provides the registry of framegraph device backends.
//
// Backends are registered via init() functions and selected at runtime:
//
//	import (
//		"github.com/gogpu/framegraph/backend"
//		_ "github.com/gogpu/framegraph/backend/native"
//		_ "github.com/gogpu/framegraph/backend/trace"
//	)
//
//	b, dev, err := backend.Default()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	g := framegraph.New(dev)
//
// # Available Backends
//
//   - "hal": gogpu/wgpu HAL (Vulkan by default, noop for headless tests)
//   - "trace": software device that records every call; no GPU required
//
// Default tries "hal" first and falls back to "trace".
package backend
