package models

// Account holds one set of login credentials parsed from the accounts input.
type Account struct {
	Username string `json:"username"`
	Password string `json:"-"`
	TwoFA    string `json:"-"`
}
