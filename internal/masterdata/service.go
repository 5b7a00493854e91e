package masterdata

import (
	"context"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// RepositoryPort abstracts the transactional master data store.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository upserts seed data and reads it back.
type TxRepository interface {
	Lookup
	UpsertAccount(ctx context.Context, account accounting.Account) (accounting.Account, error)
	UpsertContact(ctx context.Context, contact Contact) (Contact, error)
	UpsertProduct(ctx context.Context, product Product) (Product, error)
	UpsertWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
}

// SeedResult maps natural keys to stored ids.
type SeedResult struct {
	Accounts   map[string]int64
	Contacts   map[string]int64
	Products   map[string]int64
	Warehouses map[string]int64
}

// Seeder loads catalogs into the store.
type Seeder struct {
	repo RepositoryPort
}

// NewSeeder constructs a Seeder.
func NewSeeder(repo RepositoryPort) *Seeder {
	return &Seeder{repo: repo}
}

// Seed validates the catalog and upserts it in one transaction. Accounts are
// matched by code, contacts by name, products by SKU and warehouses by name.
func (s *Seeder) Seed(ctx context.Context, c Catalog) (SeedResult, error) {
	if err := c.Validate(); err != nil {
		return SeedResult{}, err
	}
	res := SeedResult{
		Accounts:   make(map[string]int64),
		Contacts:   make(map[string]int64),
		Products:   make(map[string]int64),
		Warehouses: make(map[string]int64),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, acc := range c.orderedAccounts() {
			in := accounting.Account{
				Code: acc.Code,
				Name: acc.Name,
				Type: accounting.AccountType(strings.ToUpper(acc.Type)),
			}
			in.ParentID = res.account(acc.Parent)
			stored, err := tx.UpsertAccount(ctx, in)
			if err != nil {
				return err
			}
			res.Accounts[acc.Code] = stored.ID
		}
		for _, ct := range c.Contacts {
			stored, err := tx.UpsertContact(ctx, Contact{
				Name:                ct.Name,
				Type:                ContactType(strings.ToUpper(ct.Type)),
				TaxID:               ct.TaxID,
				Currency:            ct.Currency,
				ReceivableAccountID: res.account(ct.Receivable),
				PayableAccountID:    res.account(ct.Payable),
			})
			if err != nil {
				return err
			}
			res.Contacts[ct.Name] = stored.ID
		}
		for _, p := range c.Products {
			stored, err := tx.UpsertProduct(ctx, Product{
				SKU:                p.SKU,
				Name:               p.Name,
				Type:               ProductType(strings.ToUpper(p.Type)),
				SalesAccountID:     res.account(p.Sales),
				ExpenseAccountID:   res.account(p.Expense),
				InventoryAccountID: res.account(p.Inventory),
			})
			if err != nil {
				return err
			}
			res.Products[p.SKU] = stored.ID
		}
		for _, w := range c.Warehouses {
			stored, err := tx.UpsertWarehouse(ctx, Warehouse{Name: w.Name, Location: w.Location})
			if err != nil {
				return err
			}
			res.Warehouses[w.Name] = stored.ID
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return res, nil
}

func (r SeedResult) account(code string) *int64 {
	if code == "" {
		return nil
	}
	id, ok := r.Accounts[code]
	if !ok {
		return nil
	}
	return &id
}
