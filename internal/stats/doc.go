// Package stats holds the numerical primitives used by the stage evaluators:
// robust plateau detection, Richardson error estimation, ROC/AUC with bootstrap
// confidence intervals and a seeded sampler.
//
// Functions never panic on degenerate input; they return documented fallback
// values instead (AUC 0.5 for a single class, zero error for short series).
package stats
