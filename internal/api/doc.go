// Package api exposes the REST surface of the risk daemon: submitting
// transactions for evaluation, reading past runs, consulting the budget
// governor, consuming payment references, evaluating app performance
// and requesting governance vote recommendations.
package api
