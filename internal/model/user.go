package model

// UserProfile identifies the owner of a ledger. Username is the partition key
// and never changes once created.
type UserProfile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Account is a profile together with the ledger it owns, in append order.
type Account struct {
	UserProfile
	Ledger []TransactionRecord
}
