package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DirectionLong  = "Long"
	DirectionShort = "Short"

	SourceCSVImport = "csv-import"
)

// Trade is one journaled fill, owned by a single user.
type Trade struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"size:64;not null;index;uniqueIndex:idx_trade_fill,priority:1" json:"user_id"`
	AccountID *uint  `gorm:"index" json:"account_id"`

	Symbol    string `gorm:"size:32;not null;uniqueIndex:idx_trade_fill,priority:2" json:"symbol"`
	Direction string `gorm:"size:16;uniqueIndex:idx_trade_fill,priority:3" json:"direction"`

	Date      string     `gorm:"size:10;index" json:"date"`
	Time      string     `gorm:"size:8" json:"time"`
	EntryTime *time.Time `gorm:"uniqueIndex:idx_trade_fill,priority:4" json:"entry_time"`
	ExitTime  *time.Time `gorm:"uniqueIndex:idx_trade_fill,priority:5" json:"exit_time"`
	Duration  *string    `gorm:"size:32" json:"duration"`

	Size       *int64   `gorm:"uniqueIndex:idx_trade_fill,priority:8" json:"size"`
	EntryPrice *float64 `gorm:"uniqueIndex:idx_trade_fill,priority:6" json:"entry_price"`
	ExitPrice  *float64 `gorm:"uniqueIndex:idx_trade_fill,priority:7" json:"exit_price"`
	GrossPnl   *float64 `gorm:"column:gross_pnl" json:"gross_pnl"`
	Fees       *float64 `json:"fees"`
	Pnl        *float64 `json:"pnl"`
	RR         *float64 `gorm:"column:rr" json:"rr"`

	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Rating      *int64                      `json:"rating"`
	Emotion     *string                     `gorm:"size:64" json:"emotion"`
	AccountType *string                     `gorm:"column:account_type;size:64" json:"accountType"`

	Details *datatypes.JSONType[TradeDetails] `json:"details,omitempty"`
	Setup   *datatypes.JSONType[TradeSetup]   `json:"setup,omitempty"`

	ImageURL *string `gorm:"column:image_url;type:text" json:"image_url"`

	IsImported    bool    `gorm:"not null;default:false" json:"is_imported"`
	Source        *string `gorm:"size:32" json:"source"`
	BrokerTradeID *string `gorm:"size:100" json:"broker_trade_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName allows you to control the exact table name for trades.
func (Trade) TableName() string {
	return "trades"
}

// TradeDetails is the narrative bag of a trade. Keys other than notes and
// session are kept in Extra and written back at the top level of the JSON.
type TradeDetails struct {
	Notes   string                 `json:"notes,omitempty"`
	Session string                 `json:"session,omitempty"`
	Extra   map[string]interface{} `json:"-"`
}

// IsEmpty reports whether the bag carries nothing worth storing.
func (d TradeDetails) IsEmpty() bool {
	return d.Notes == "" && d.Session == "" && len(d.Extra) == 0
}

// TradeSetup describes why the trade was taken.
type TradeSetup struct {
	EntryCriteria string   `json:"entryCriteria,omitempty"`
	Confluences   []string `json:"confluences,omitempty"`
}

// IsEmpty reports whether the setup carries nothing worth storing.
func (s TradeSetup) IsEmpty() bool {
	return s.EntryCriteria == "" && len(s.Confluences) == 0
}

// IdentityColumns are the columns a fill identity is derived from. They are
// also the upsert conflict target, scoped by user_id.
var IdentityColumns = []string{
	"symbol",
	"direction",
	"entry_time",
	"exit_time",
	"entry_price",
	"exit_price",
	"size",
}
