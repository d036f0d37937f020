// Package codegen normalizes and validates AI-generated component source.
//
// The AI returns free-form text for every chat turn. Before anything is
// rendered, that text passes through two stages:
//
//  1. Normalize: a fixed sequence of textual rewrites that strips markdown
//     fences, module syntax, and global bindings, splits the component body
//     from its stylesheet on the /* CSS */ delimiter, and guarantees exactly
//     one hook-destructuring prelude.
//  2. Validate: four ordered structural gates (foreign markup, segment
//     confusion, brace balance, declaration presence). The first failing
//     gate determines the rejection reason.
//
// Rejected output never reaches the render surface; the previously committed
// component stays mounted.
package codegen
