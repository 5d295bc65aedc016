package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RentalUnit is a shop's rentable stock of one item: its own coordinate,
// daily price and quantity. Inventory mutation belongs to the shop-owner
// surface; this service reads units and reserves intervals against them.
type RentalUnit struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID            uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Name              string          `gorm:"column:name;not null"`
	Category          string          `gorm:"column:category;not null;index"`
	Latitude          float64         `gorm:"column:latitude;type:numeric(9,6);not null"`
	Longitude         float64         `gorm:"column:longitude;type:numeric(9,6);not null"`
	PricePerDay       decimal.Decimal `gorm:"column:price_per_day;type:numeric(12,2);not null"`
	DeliveryAvailable bool            `gorm:"column:delivery_available;not null;default:false"`
	DeliveryFee       decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Available         bool            `gorm:"column:available;not null;default:true"`
	Quantity          int             `gorm:"column:quantity;not null;default:1"`
	FeePolicy         *FeePolicy      `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
