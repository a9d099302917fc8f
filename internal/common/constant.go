package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Collection names shared by the local store, the sync engine and the
// remote document store.
const (
	CollectionExpenses = "expenses"
	CollectionBudgets  = "budgets"
)
