// Package consensus aggregates the specialist risk reports of one evaluation
// run into a single auditable decision and derives the concrete action intent
// that the decision implies. Aggregation is worst-case dominant and
// permutation-invariant so agent execution order never changes the outcome.
package consensus
