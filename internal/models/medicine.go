package models

// Medicine represents an inventory SKU. PriceMinor is in integer minor
// currency units; Stock never goes negative because every decrement is
// guarded inside the same atomic statement that checks sufficiency.
type Medicine struct {
	BaseModel
	Name       string `gorm:"size:255;not null" json:"name"`
	PriceMinor int64  `gorm:"not null" json:"priceMinor"`
	Stock      int    `gorm:"not null;default:0" json:"stock"`
	Unit       string `gorm:"size:32" json:"unit"`
}
