// Package ledger implements an integer-balance account whose state changes
// are recorded in a snapshot history, with undo, redo and out-of-band restore.
//
// Mutations are validated by a Policy before anything changes. A refused
// mutation returns false and leaves the balance and history untouched:
//
//	account := ledger.NewAccount(100)
//	account.Deposit(20)         // 120
//	account.Withdraw(500)       // false, still 120
//	account.Undo()              // 100
//	account.Redo()              // 120
package ledger
