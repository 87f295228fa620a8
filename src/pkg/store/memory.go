package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/invoice"
	"invoice-bot/src/pkg/money"
)

/*
Fixture is the on-disk shape of an offline store: raw rows of both tables.

Example:

	{
	  "invoices":      [{"invoice_id": 1001, "customer_name": "Ali", "sub_total": 100}],
	  "invoice_items": [{"invoice_id": 1001, "product_name": "Pen", "sub_total": 100}]
	}
*/
type Fixture struct {
	Invoices     []invoice.Record `json:"invoices"`
	InvoiceItems []invoice.Record `json:"invoice_items"`
}

/*
MemoryStore serves rows held in memory. It backs the offline render CLI
and the pipeline tests.
*/
type MemoryStore struct {
	mu      sync.RWMutex
	headers map[int64]invoice.Record
	items   map[int64][]invoice.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		headers: map[int64]invoice.Record{},
		items:   map[int64][]invoice.Record{},
	}
}

// FromFixture indexes fixture rows by their invoice_id column. Rows without a usable id are skipped.
func FromFixture(fixture Fixture) *MemoryStore {
	memory := NewMemoryStore()
	for _, header := range fixture.Invoices {
		invoiceID, ok := rowInvoiceID(header)
		if !ok {
			tl.Log(tl.Warning, palette.PurpleBright, "Skipping fixture header without %s: %v", invoice.ColumnInvoiceID, header)
			continue
		}
		if _, exists := memory.headers[invoiceID]; exists {
			continue // first row wins, like limit=1
		}
		memory.headers[invoiceID] = header
	}
	for _, item := range fixture.InvoiceItems {
		invoiceID, ok := rowInvoiceID(item)
		if !ok {
			tl.Log(tl.Warning, palette.PurpleBright, "Skipping fixture item without %s: %v", invoice.ColumnInvoiceID, item)
			continue
		}
		memory.items[invoiceID] = append(memory.items[invoiceID], item)
	}
	return memory
}

// LoadFixture reads a Fixture JSON file into a MemoryStore.
func LoadFixture(fixturePath string) (memory *MemoryStore, e *xerr.Error) {
	fixtureBytes, readErr := os.ReadFile(fixturePath)
	if readErr != nil {
		return nil, xerr.NewError(readErr, "read store fixture", fixturePath)
	}

	decoder := json.NewDecoder(bytes.NewReader(fixtureBytes))
	decoder.UseNumber()
	var fixture Fixture
	decodeErr := decoder.Decode(&fixture)
	if decodeErr != nil {
		return nil, xerr.NewError(decodeErr, "unmarshal store fixture", fixturePath)
	}

	memory = FromFixture(fixture)
	tl.Log(tl.Info1, palette.Green, "Loaded fixture '%s': %d invoices, %d items", fixturePath, len(fixture.Invoices), len(fixture.InvoiceItems))
	return memory, nil
}

// Put stores a header and its items, replacing any previous rows for the id.
func (m *MemoryStore) Put(invoiceID int64, header invoice.Record, items []invoice.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[invoiceID] = header
	m.items[invoiceID] = items
}

func (m *MemoryStore) FetchHeader(ctx context.Context, invoiceID int64) (header invoice.Record, found bool, e *xerr.Error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, xerr.NewError(ctxErr, "fetch header from memory", invoiceID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	header, found = m.headers[invoiceID]
	return header, found, nil
}

func (m *MemoryStore) FetchItems(ctx context.Context, invoiceID int64) (items []invoice.Record, e *xerr.Error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, xerr.NewError(ctxErr, "fetch items from memory", invoiceID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]invoice.Record(nil), m.items[invoiceID]...), nil
}

func rowInvoiceID(row invoice.Record) (invoiceID int64, ok bool) {
	value, present := row[invoice.ColumnInvoiceID]
	if !present || value == nil {
		return 0, false
	}
	amount := money.Coerce(value)
	if amount < 0 || amount != float64(int64(amount)) {
		return 0, false
	}
	return int64(amount), true
}
