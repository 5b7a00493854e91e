package masterdata

import (
	"context"
	"time"
)

// ContactType separates customers from vendors.
type ContactType string

const (
	ContactCustomer ContactType = "CUSTOMER"
	ContactVendor   ContactType = "VENDOR"
)

// ProductType drives which account a purchase line is booked to.
type ProductType string

const (
	ProductService ProductType = "SERVICE"
	ProductGoods   ProductType = "GOODS"
)

// Contact represents a customer or vendor with its control accounts.
type Contact struct {
	ID                  int64       `json:"id"`
	Name                string      `json:"name"`
	Type                ContactType `json:"type"`
	TaxID               string      `json:"taxId,omitempty"`
	Currency            string      `json:"currency,omitempty"`
	ReceivableAccountID *int64      `json:"receivableAccountId,omitempty"`
	PayableAccountID    *int64      `json:"payableAccountId,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// Product represents a sellable or purchasable item and its posting accounts.
type Product struct {
	ID                 int64       `json:"id"`
	SKU                string      `json:"sku"`
	Name               string      `json:"name"`
	Type               ProductType `json:"type"`
	SalesAccountID     *int64      `json:"salesAccountId,omitempty"`
	ExpenseAccountID   *int64      `json:"expenseAccountId,omitempty"`
	InventoryAccountID *int64      `json:"inventoryAccountId,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// Warehouse represents a stock location.
type Warehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lookup reads master data inside a ledger transaction.
type Lookup interface {
	GetContact(ctx context.Context, id int64) (Contact, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
}
