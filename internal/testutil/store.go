package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/salesdash/pkg/adapters/sqlite"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

// Customer is a row of the customers fixture table.
type Customer struct {
	ID      string
	Name    string
	Segment string
}

// Order is a row of the orders fixture table.
type Order struct {
	ID          string
	CustomerID  string
	Date        string
	ShipMode    string
	Country     string
	Region      string
	ProductID   string
	Category    string
	SubCategory string
	ProductName string
	Sales       float64
	Quantity    int64
	Discount    float64
	Profit      float64
}

// SalesStore is a writable SQLite file with the sales schema applied.
type SalesStore struct {
	Path string

	t   testing.TB
	adp *sqlite.Adapter
}

// NewSalesStore creates a migrated store in a temp dir. It is closed when
// the test ends.
func NewSalesStore(t testing.TB) *SalesStore {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "sales.db")
	adp := sqlite.New(NewTestLogger(t))
	if err := adp.Connect(ctx, core.AdapterConfig{Type: "sqlite", Path: path, Create: true}); err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = adp.Close() })

	if err := adp.Migrate(ctx); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	return &SalesStore{Path: path, t: t, adp: adp}
}

// Config returns a read-only connection config for the store.
func (s *SalesStore) Config() core.AdapterConfig {
	return core.AdapterConfig{Type: "sqlite", Path: s.Path}
}

// Exec runs a statement with bind arguments.
func (s *SalesStore) Exec(query string, args ...any) {
	s.t.Helper()
	if _, err := s.adp.DB.ExecContext(context.Background(), query, args...); err != nil {
		s.t.Fatalf("exec %q: %v", query, err)
	}
}

// AddCustomers inserts customer rows.
func (s *SalesStore) AddCustomers(customers ...Customer) {
	s.t.Helper()
	for _, c := range customers {
		s.Exec(`INSERT INTO customers (Customer_ID, Customer_Name, Segment) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.Segment)
	}
}

// AddOrders inserts order rows.
func (s *SalesStore) AddOrders(orders ...Order) {
	s.t.Helper()
	for _, o := range orders {
		s.Exec(`INSERT INTO orders (
			Order_ID, Customer_ID, Order_Date, Ship_Mode, Country, Region, Product_ID,
			Category, Sub_Category, Product_Name, Sales, Quantity, Discount, Profit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.CustomerID, o.Date, o.ShipMode, o.Country, o.Region, o.ProductID,
			o.Category, o.SubCategory, o.ProductName, o.Sales, o.Quantity, o.Discount, o.Profit)
	}
}

// AddHeaderRows appends the column names of each table as a data row, the
// way a CSV import that kept its header would.
func (s *SalesStore) AddHeaderRows() {
	s.t.Helper()
	s.Exec(`INSERT INTO customers VALUES ('Customer_ID', 'Customer_Name', 'Segment')`)
	s.Exec(`INSERT INTO orders VALUES (
		'Order_ID', 'Customer_ID', 'Order_Date', 'Ship_Mode', 'Country', 'Region', 'Product_ID',
		'Category', 'Sub_Category', 'Product_Name', 'Sales', 'Quantity', 'Discount', 'Profit'
	)`)
}

// Sample fills the store with a small, fully valid data set.
func (s *SalesStore) Sample() {
	s.t.Helper()
	s.AddCustomers(
		Customer{ID: "C-1", Name: "Ada", Segment: "Consumer"},
		Customer{ID: "C-2", Name: "Grace", Segment: "Corporate"},
		Customer{ID: "C-3", Name: "Linus", Segment: "Home Office"},
	)
	s.AddOrders(
		Order{ID: "O-1", CustomerID: "C-1", Date: "11/05/2020", ShipMode: "First Class", Country: "United States", Region: "West",
			ProductID: "P-1", Category: "Technology", SubCategory: "Copiers", ProductName: "Copier", Sales: 300, Quantity: 2, Discount: 0, Profit: 90},
		Order{ID: "O-2", CustomerID: "C-1", Date: "12/01/2020", ShipMode: "Standard Class", Country: "United States", Region: "East",
			ProductID: "P-2", Category: "Furniture", SubCategory: "Tables", ProductName: "Table", Sales: 200, Quantity: 1, Discount: 0.2, Profit: -40},
		Order{ID: "O-3", CustomerID: "C-2", Date: "11/20/2020", ShipMode: "Standard Class", Country: "United States", Region: "West",
			ProductID: "P-3", Category: "Office Supplies", SubCategory: "Paper", ProductName: "Paper", Sales: 50, Quantity: 5, Discount: 0, Profit: 20},
		Order{ID: "O-4", CustomerID: "C-3", Date: "01/15/2019", ShipMode: "Second Class", Country: "United States", Region: "Central",
			ProductID: "P-1", Category: "Technology", SubCategory: "Copiers", ProductName: "Copier", Sales: 150, Quantity: 1, Discount: 0.1, Profit: 30},
	)
}
