// Package pipeline executes admitted jobs through their stage sequence:
// prompt enhancement, parameter derivation, artifact production, and
// persistence. It owns the seed derivation rules and the prompt splitting
// and fallback logic, and serializes access to the non-reentrant production
// backend.
package pipeline
