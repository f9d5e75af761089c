package db

import (
	"time"
)

// User represents a market account
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(30);not null;unique" json:"username"`
	PasswordHash string    `gorm:"type:varchar(60);not null" json:"-"`
	EmailAddress string    `gorm:"type:varchar(50);not null;unique" json:"email_address"`
	Items        []Item    `gorm:"foreignKey:Owner;references:Username;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"items,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// Item represents a product listed on the market.
// Owner holds the owning user's username, or nil while unowned.
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(30);not null;index:idx_items_name" json:"name"`
	Price       int64     `gorm:"not null" json:"price"`
	Barcode     string    `gorm:"type:varchar(12);not null;unique" json:"barcode"`
	Description string    `gorm:"type:varchar(1024);not null" json:"description"`
	Owner       *string   `gorm:"type:varchar(30);index:idx_items_owner" json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Item model
func (Item) TableName() string {
	return "items"
}

// OwnerName returns the owner's username, or "" when unowned.
func (i *Item) OwnerName() string {
	if i.Owner == nil {
		return ""
	}
	return *i.Owner
}

// SetOwner points the item at username.
func (i *Item) SetOwner(username string) {
	i.Owner = &username
}

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{&User{}, &Item{}}
}
