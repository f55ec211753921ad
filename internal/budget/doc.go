// Package budget implements the spend governor: a process-wide ledger of
// treasury balance and accumulated daily burn that gates every
// budget-consuming action. Checks and mutations run inside a single critical
// section so concurrent requests cannot jointly exceed a cap.
package budget
