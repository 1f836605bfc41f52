package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a player's off-chain balance. Secret is the opaque token the
// game client authenticates with; WalletAddress is stored lowercase.
type Account struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username      string    `gorm:"size:64;uniqueIndex;not null"`
	Secret        string    `gorm:"size:128;uniqueIndex;not null"`
	WalletAddress string    `gorm:"size:42"`
	TotalTokens   int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}
