// Package provenance builds an auditable trail out of agent risk
// reports. Each report is digested, appended to a ledger, and announced
// on a queue for downstream indexers. Recording is best effort and
// never blocks or fails the decision path that produced the reports.
package provenance
