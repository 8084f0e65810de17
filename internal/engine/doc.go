// Package engine evaluates QC rules against canonical annotations.
//
// The engine is stateless and purely functional over its inputs: it is
// built once from an immutable configuration and evaluates one case at
// a time, so callers may run any number of evaluations concurrently
// without locking.
//
// INVARIANTS:
//   - Rules are evaluated in declaration order; shapes in input order;
//     label sets in sorted order. Evaluating the same annotation twice
//     yields an identical, order-stable finding list.
//   - No check short-circuits another: a single case can carry many
//     findings of mixed severity (maximal information policy).
//   - Findings are created once and never mutated.
package engine
