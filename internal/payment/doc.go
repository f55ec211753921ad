// Package payment guards x402-style payment references against replay
// and exposes a lightweight verification capability. References are
// normalized before any lookup so that casing or stray whitespace can
// never mint a fresh identity for an already spent payment.
package payment
