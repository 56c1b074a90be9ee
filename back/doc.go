// Package back holds the pieces every backend shares: identifier naming,
// entry point selection, the expression baking policy and per-function
// writing context.
//
// A backend receives a validated module together with the
// [ir.ModuleInfo] the validator produced. Nothing in this package mutates
// the module, so several backends may run over the same module at once.
package back
