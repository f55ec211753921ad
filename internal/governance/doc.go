// Package governance screens DAO proposal text with independent keyword
// probes and turns the probe results into a vote recommendation. The
// aggregation here counts failed checks and is deliberately separate
// from the risk-consensus severity ordering.
package governance
