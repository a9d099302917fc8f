// Package expenses is the local persistence layer for expense records.
//
// Every query is scoped by owner. Amounts are stored as decimal TEXT, dates
// as YYYY-MM-DD and instants in the fixed-width timex.InstantLayout, so
// string comparison in SQL matches chronological order.
//
// Typical usage
//
//	repo := expenses.NewSQLiteRepository(db)
//	_ = repo.Put(ctx, e)
//	pending, _ := repo.GetUnsynced(ctx, owner)
//	_ = repo.MarkSynced(ctx, owner, e.ID, e.UpdatedAt)
package expenses
