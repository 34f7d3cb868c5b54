package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStatus is the moderation state of a product. Only approved
// products are visible to buyers and eligible for checkout.
type ProductStatus int16

const (
	ProductPending ProductStatus = iota
	ProductApproved
	ProductRejected
)

// OrderStatus follows Pending -> Processing -> Shipped -> Delivered,
// with Pending -> Canceled as the alternate terminal.
type OrderStatus int16

const (
	OrderPending OrderStatus = iota
	OrderProcessing
	OrderShipped
	OrderDelivered
	OrderCanceled
)

// TransactionStatus is the state of a payment provider transaction.
type TransactionStatus int16

const (
	TransactionPending TransactionStatus = iota
	TransactionSuccess
	TransactionFailed
	TransactionRefunded
)

type User struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string         `gorm:"unique;not null"          json:"username"`
	Email        string         `gorm:"unique;not null"          json:"email"`
	PasswordHash string         `gorm:"not null"                 json:"-"`
	Role         string         `gorm:"not null;default:user"    json:"role"`
	FullName     string         `json:"full_name"`
	PhoneNumber  string         `json:"phone_number"`
	Address      string         `json:"address"`
	IsActive     bool           `gorm:"default:true"             json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index"                    json:"-"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type Category struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"unique;not null"          json:"name"`
	Description string         `json:"description"`
	DeletedAt   gorm.DeletedAt `gorm:"index"                    json:"-"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	SellerID    uint            `gorm:"index;not null"              json:"seller_id"`
	CategoryID  uint            `gorm:"index;not null"              json:"category_id"`
	Title       string          `gorm:"not null"                    json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	Quantity    uint            `gorm:"not null;default:0"          json:"quantity"`
	ViewCount   uint            `gorm:"not null;default:0"          json:"view_count"`
	Status      ProductStatus   `gorm:"not null;default:0"          json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index"                       json:"-"`
}

// Sellable reports whether the product may appear in carts and orders.
// Soft-deleted rows never reach here: repo reads filter them.
func (p *Product) Sellable() bool {
	return p.Status == ProductApproved
}

type Cart struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"uniqueIndex;not null"     json:"user_id"`
	LastUpdated time.Time  `gorm:"not null"                 json:"last_updated"`
	Items       []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"             json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:uq_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:uq_cart_product" json:"product_id"`
	Quantity  uint      `gorm:"not null;check:quantity>0"            json:"quantity"`
	AddedAt   time.Time `gorm:"not null"                             json:"added_at"`
}

type ContactInfo struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint           `gorm:"index"                    json:"user_id"`
	RecipientName string         `gorm:"not null"                 json:"recipient_name"`
	PhoneNumber   string         `gorm:"not null"                 json:"phone_number"`
	StreetAddress string         `gorm:"not null"                 json:"street_address"`
	City          string         `json:"city"`
	DeletedAt     gorm.DeletedAt `gorm:"index"                    json:"-"`
}

type PaymentMethod struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"unique;not null"          json:"name"`
	IsOnline  bool           `gorm:"not null"                 json:"is_online"`
	DeletedAt gorm.DeletedAt `gorm:"index"                    json:"-"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	BuyerID         uint            `gorm:"index;not null"              json:"buyer_id"`
	ContactID       uint            `gorm:"not null"                    json:"contact_id"`
	PaymentMethodID uint            `gorm:"not null"                    json:"payment_method_id"`
	OrderDate       time.Time       `gorm:"not null"                    json:"order_date"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_amount"`
	ShippingFee     decimal.Decimal `gorm:"type:numeric(18,2)"          json:"shipping_fee"`
	Status          OrderStatus     `gorm:"not null;default:0"          json:"status"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"                       json:"-"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem carries the price snapshot taken at order time. Price and
// SellerID are copied from the product and never updated afterwards.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	SellerID  uint            `gorm:"not null"                    json:"seller_id"`
	Price     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	Quantity  uint            `gorm:"not null;check:quantity>0"   json:"quantity"`
}

// PaymentTransaction is the 1:1 capture record of an order. The unique
// ProviderRef is what makes provider callbacks replay-safe.
type PaymentTransaction struct {
	ID              uint              `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID         uint              `gorm:"uniqueIndex;not null"        json:"order_id"`
	PaymentMethodID uint              `gorm:"not null"                    json:"payment_method_id"`
	ProviderRef     string            `gorm:"uniqueIndex;not null"        json:"provider_ref"`
	Amount          decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"amount"`
	Status          TransactionStatus `gorm:"not null;default:0"          json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}
