// Package catalog - Authoritative option catalog
// Defines the canonical selectable values of a pricing request with their labels.
// This is the source of truth for request forms and option endpoints.
package catalog

import (
	"sort"
	"strconv"
)

// Group names one list of selectable options
type Group string

const (
	GroupCategories           Group = "categories"
	GroupClassifications      Group = "classifications"
	GroupPeriods              Group = "periods"
	GroupInternalVehicleTypes Group = "internalVehicleTypes"
	GroupBorderVehicleTypes   Group = "borderVehicleTypes"
)

// Groups lists every group in display order
var Groups = []Group{
	GroupCategories,
	GroupClassifications,
	GroupPeriods,
	GroupInternalVehicleTypes,
	GroupBorderVehicleTypes,
}

// Option is a catalog entry
type Option struct {
	Group Group  `json:"-"`
	Value string `json:"value"`
	Label string `json:"label"`
	// Order keeps the registration order for display
	Order int `json:"-"`
}

// Catalog is the authoritative option catalog
type Catalog struct {
	entries map[Group]map[string]*Option
	next    int
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[Group]map[string]*Option),
	}
}

// Register adds an option to a group
func (c *Catalog) Register(group Group, value, label string) {
	if c.entries[group] == nil {
		c.entries[group] = make(map[string]*Option)
	}
	c.next++
	c.entries[group][value] = &Option{Group: group, Value: value, Label: label, Order: c.next}
}

// Get returns an option
func (c *Catalog) Get(group Group, value string) (*Option, bool) {
	opt, ok := c.entries[group][value]
	return opt, ok
}

// Label returns the label of an option, or the value itself when unknown
func (c *Catalog) Label(group Group, value string) string {
	if opt, ok := c.Get(group, value); ok {
		return opt.Label
	}
	return value
}

// List returns a group's options in registration order
func (c *Catalog) List(group Group) []Option {
	result := make([]Option, 0, len(c.entries[group]))
	for _, opt := range c.entries[group] {
		result = append(result, *opt)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	return result
}

// Options is the full option set served to clients
type Options struct {
	Categories           []Option       `json:"categories"`
	Classifications      []Option       `json:"classifications"`
	Periods              []PeriodOption `json:"periods"`
	InternalVehicleTypes []Option       `json:"internalVehicleTypes"`
	BorderVehicleTypes   []Option       `json:"borderVehicleTypes"`
}

// PeriodOption carries its month count as a number
type PeriodOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Options returns every group
func (c *Catalog) Options() Options {
	periods := c.List(GroupPeriods)
	po := make([]PeriodOption, 0, len(periods))
	for _, p := range periods {
		n, err := strconv.Atoi(p.Value)
		if err != nil {
			continue
		}
		po = append(po, PeriodOption{Value: n, Label: p.Label})
	}
	return Options{
		Categories:           c.List(GroupCategories),
		Classifications:      c.List(GroupClassifications),
		Periods:              po,
		InternalVehicleTypes: c.List(GroupInternalVehicleTypes),
		BorderVehicleTypes:   c.List(GroupBorderVehicleTypes),
	}
}

// Stats returns the number of options per group
func (c *Catalog) Stats() map[Group]int {
	stats := make(map[Group]int, len(c.entries))
	for g, opts := range c.entries {
		stats[g] = len(opts)
	}
	return stats
}
