package masterdata

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// Catalog is the YAML seed document for the chart and master data. Accounts
// reference each other by code; contacts and products reference accounts by
// code too.
type Catalog struct {
	Accounts   []CatalogAccount   `yaml:"accounts"`
	Contacts   []CatalogContact   `yaml:"contacts"`
	Products   []CatalogProduct   `yaml:"products"`
	Warehouses []CatalogWarehouse `yaml:"warehouses"`
}

type CatalogAccount struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Parent string `yaml:"parent"`
}

type CatalogContact struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	TaxID      string `yaml:"tax_id"`
	Currency   string `yaml:"currency"`
	Receivable string `yaml:"receivable"`
	Payable    string `yaml:"payable"`
}

type CatalogProduct struct {
	SKU       string `yaml:"sku"`
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Sales     string `yaml:"sales"`
	Expense   string `yaml:"expense"`
	Inventory string `yaml:"inventory"`
}

type CatalogWarehouse struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
}

// LoadCatalogFile reads and validates a catalog from path.
func LoadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("masterdata: open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes and validates a catalog.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("masterdata: parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks codes, enum values and cross references, and rejects
// hierarchy cycles. Every problem is reported.
func (c Catalog) Validate() error {
	var result *multierror.Error
	codes := make(map[string]int64, len(c.Accounts))
	for i, acc := range c.Accounts {
		if acc.Code == "" {
			result = multierror.Append(result, fmt.Errorf("accounts[%d]: code is required", i))
			continue
		}
		if _, dup := codes[acc.Code]; dup {
			result = multierror.Append(result, fmt.Errorf("accounts[%d]: duplicate code %s", i, acc.Code))
		}
		codes[acc.Code] = int64(i + 1)
		if !accounting.AccountType(strings.ToUpper(acc.Type)).Valid() {
			result = multierror.Append(result, fmt.Errorf("account %s: unknown type %q", acc.Code, acc.Type))
		}
	}
	chartInput := make([]accounting.Account, 0, len(c.Accounts))
	for _, acc := range c.Accounts {
		node := accounting.Account{ID: codes[acc.Code], Code: acc.Code}
		if acc.Parent != "" {
			pid, ok := codes[acc.Parent]
			if !ok {
				result = multierror.Append(result, fmt.Errorf("account %s: unknown parent %s", acc.Code, acc.Parent))
				continue
			}
			node.ParentID = &pid
		}
		chartInput = append(chartInput, node)
	}
	if result == nil {
		if _, err := accounting.NewChart(chartInput); err != nil {
			result = multierror.Append(result, err)
		}
	}
	ref := func(owner, role, code string) {
		if code == "" {
			return
		}
		if _, ok := codes[code]; !ok {
			result = multierror.Append(result, fmt.Errorf("%s: %s account %s is not in the catalog", owner, role, code))
		}
	}
	for i, ct := range c.Contacts {
		owner := fmt.Sprintf("contacts[%d] %s", i, ct.Name)
		if ct.Name == "" {
			result = multierror.Append(result, fmt.Errorf("contacts[%d]: name is required", i))
		}
		switch ContactType(strings.ToUpper(ct.Type)) {
		case ContactCustomer, ContactVendor:
		default:
			result = multierror.Append(result, fmt.Errorf("%s: unknown type %q", owner, ct.Type))
		}
		ref(owner, "receivable", ct.Receivable)
		ref(owner, "payable", ct.Payable)
	}
	for i, p := range c.Products {
		owner := fmt.Sprintf("products[%d] %s", i, p.SKU)
		if p.SKU == "" {
			result = multierror.Append(result, fmt.Errorf("products[%d]: sku is required", i))
		}
		switch ProductType(strings.ToUpper(p.Type)) {
		case ProductService, ProductGoods:
		default:
			result = multierror.Append(result, fmt.Errorf("%s: unknown type %q", owner, p.Type))
		}
		ref(owner, "sales", p.Sales)
		ref(owner, "expense", p.Expense)
		ref(owner, "inventory", p.Inventory)
	}
	for i, w := range c.Warehouses {
		if w.Name == "" {
			result = multierror.Append(result, fmt.Errorf("warehouses[%d]: name is required", i))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return &accounting.ValidationError{Field: "catalog", Reason: err.Error()}
	}
	return nil
}

// orderedAccounts returns accounts with every parent ahead of its children.
func (c Catalog) orderedAccounts() []CatalogAccount {
	byCode := make(map[string]CatalogAccount, len(c.Accounts))
	for _, acc := range c.Accounts {
		byCode[acc.Code] = acc
	}
	done := make(map[string]bool, len(c.Accounts))
	out := make([]CatalogAccount, 0, len(c.Accounts))
	var visit func(code string)
	visit = func(code string) {
		if done[code] {
			return
		}
		done[code] = true
		acc := byCode[code]
		if acc.Parent != "" {
			visit(acc.Parent)
		}
		out = append(out, acc)
	}
	for _, acc := range c.Accounts {
		visit(acc.Code)
	}
	return out
}
