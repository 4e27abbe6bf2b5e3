package model

import "time"

// Account is a trading account a user journals trades against.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_account_user_name,priority:1" json:"user_id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_account_user_name,priority:2" json:"name"`
	Broker    string    `gorm:"size:100" json:"broker"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName allows you to control the exact table name for accounts.
func (Account) TableName() string {
	return "accounts"
}

// CreateAccountPayload is the body accepted when creating an account.
type CreateAccountPayload struct {
	Name   string `json:"name"`
	Broker string `json:"broker"`
}
