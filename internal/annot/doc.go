// Package annot provides the canonical annotation model for vertqc.
//
// This package contains type definitions and pure geometry helpers only.
// All other internal packages import annot; annot imports nothing
// internal. This keeps the canonical model the foundational layer with
// no circular dependencies.
//
// Key design constraints:
//   - All coordinates live in the fixed 0-1000 normalized space,
//     regardless of the source image resolution. Adapters normalize
//     at the boundary; nothing downstream ever sees pixels.
//   - Annotations are created once per case, read by the engine, and
//     discarded. No field is mutated after construction.
package annot
