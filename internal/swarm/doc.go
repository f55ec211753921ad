// Package swarm orchestrates one full risk evaluation: every registered
// agent examines the transaction in a fixed order, the coordinator
// reviews the peer reports, the consensus engine produces a verdict,
// and the intent builder turns the verdict into an executable action.
// Provenance recording and run persistence happen off the decision
// path and can fail without affecting the returned result.
package swarm
