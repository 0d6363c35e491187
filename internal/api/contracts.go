package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Contract statuses known to the dashboard.
const (
	ContractStatusDraft   = "draft"
	ContractStatusActive  = "active"
	ContractStatusExpired = "expired"
)

// expiringSoonWindow marks active contracts ending within this window on
// the dashboard and in the metrics view.
const expiringSoonWindow = 30 * 24 * time.Hour

// Contract is one row of the demonstration dataset behind /api/contracts.
// Production deployments read these from the analytics pipeline; the
// backend ships with a small generated set so the whole API surface works
// end to end without it.
type Contract struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Counterparty string    `json:"counterparty"`
	Status       string    `json:"status"`
	Value        float64   `json:"value"`
	Currency     string    `json:"currency"`
	EndsAt       time.Time `json:"ends_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContractMetrics is the aggregated view served by /api/contract-metrics.
type ContractMetrics struct {
	Total           int                `json:"total"`
	ByStatus        map[string]int     `json:"by_status"`
	ValueByCurrency map[string]float64 `json:"value_by_currency"`
	ExpiringSoon    int                `json:"expiring_soon"`
}

func validContractStatus(status string) bool {
	switch status {
	case ContractStatusDraft, ContractStatusActive, ContractStatusExpired:
		return true
	}
	return false
}

// contractDataset is the mutex-guarded mock store behind the contract
// endpoints. Not a port on purpose: it exists to exercise the auth and
// rate-limit stack, not to model storage.
type contractDataset struct {
	mu   sync.RWMutex
	rows map[string]Contract
}

func newContractDataset() *contractDataset {
	ds := &contractDataset{rows: make(map[string]Contract)}
	now := time.Now().UTC()
	for _, c := range []Contract{
		{Title: "Greenfield hosting agreement", Counterparty: "Initech GmbH", Status: ContractStatusActive, Value: 120000, Currency: "EUR", EndsAt: now.AddDate(1, 0, 0)},
		{Title: "Support retainer 2026", Counterparty: "Globex Corp", Status: ContractStatusActive, Value: 48000, Currency: "USD", EndsAt: now.AddDate(0, 0, 21)},
		{Title: "Data processing addendum", Counterparty: "Umbrella SA", Status: ContractStatusDraft, Currency: "EUR", EndsAt: now.AddDate(0, 6, 0)},
		{Title: "Office lease annex B", Counterparty: "Stark Industries", Status: ContractStatusExpired, Value: 90000, Currency: "USD", EndsAt: now.AddDate(0, -1, 0)},
		{Title: "Analytics licensing renewal", Counterparty: "Hooli Inc", Status: ContractStatusActive, Value: 36000, Currency: "USD", EndsAt: now.AddDate(0, 0, 9)},
	} {
		c.ID = uuid.NewString()
		c.UpdatedAt = now
		ds.rows[c.ID] = c
	}
	return ds
}

// List returns contracts sorted by title, optionally filtered by status.
func (d *contractDataset) List(status string) []Contract {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := make([]Contract, 0, len(d.rows))
	for _, c := range d.rows {
		if status != "" && c.Status != status {
			continue
		}
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	return list
}

func (d *contractDataset) Get(id string) (Contract, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.rows[id]
	return c, ok
}

func (d *contractDataset) Put(c Contract) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows[c.ID] = c
}

func (d *contractDataset) Delete(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rows[id]; !ok {
		return false
	}
	delete(d.rows, id)
	return true
}

// Metrics aggregates the dataset into the contract-metrics view.
func (d *contractDataset) Metrics() ContractMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m := ContractMetrics{
		ByStatus:        make(map[string]int),
		ValueByCurrency: make(map[string]float64),
	}
	soon := time.Now().Add(expiringSoonWindow)
	for _, c := range d.rows {
		m.Total++
		m.ByStatus[c.Status]++
		if c.Currency != "" {
			m.ValueByCurrency[c.Currency] += c.Value
		}
		if c.Status == ContractStatusActive && c.EndsAt.Before(soon) {
			m.ExpiringSoon++
		}
	}
	return m
}

// Recent returns up to n contracts, most recently updated first.
func (d *contractDataset) Recent(n int) []Contract {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := make([]Contract, 0, len(d.rows))
	for _, c := range d.rows {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	if len(list) > n {
		list = list[:n]
	}
	return list
}
