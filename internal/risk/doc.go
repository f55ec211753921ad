// Package risk contains the polymorphic risk agents that evaluate an incoming
// blockchain transaction along independent dimensions such as approval abuse,
// counterparty reputation, and lending-position health. Each agent produces an
// immutable report with a bounded score, an ordered severity, and a
// recommendation; absence of signal is itself a valid low-confidence report.
package risk
