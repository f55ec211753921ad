// Package incubation tracks the lifecycle of generated applications.
// An app starts in incubation, is either dropped or supported based on
// usage and revenue thresholds, and after a maturity period a supported
// app is handed to its user with a fixed protocol revenue share.
// DROPPED and HANDED_TO_USER are terminal states.
package incubation
