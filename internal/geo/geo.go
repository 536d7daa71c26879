package geo

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports that no geo record covers the address.
var ErrNotFound = errors.New("geo: address not found")

// Record is the result of an address lookup.
type Record struct {
	CountryISO  string  `json:"country_iso"`
	CountryCode uint8   `json:"country_code"` // bancho country enum index
	City        string  `json:"city,omitempty"`
	Latitude    float32 `json:"latitude"`
	Longitude   float32 `json:"longitude"`
}

// Service resolves a client IP to a geo record. Lookup failures during
// login are non-fatal; callers treat them as best effort.
type Service interface {
	Lookup(ctx context.Context, ip string) (*Record, error)
}

type tableEntry struct {
	prefix netip.Prefix
	rec    Record
}

// TableProvider answers lookups from a static CIDR table.
type TableProvider struct {
	entries []tableEntry
}

type tableYAMLEntry struct {
	CIDR      string  `yaml:"cidr"`
	Country   string  `yaml:"country"`
	City      string  `yaml:"city"`
	Latitude  float32 `yaml:"latitude"`
	Longitude float32 `yaml:"longitude"`
}

type tableFile struct {
	Entries []tableYAMLEntry `yaml:"entries"`
}

// LoadTable loads a CIDR geo table from a YAML file. A missing file yields
// an empty provider; every lookup then misses.
func LoadTable(path string) (*TableProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &TableProvider{}, nil
		}
		return nil, fmt.Errorf("read geo table %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse geo table %s: %w", path, err)
	}
	p := &TableProvider{}
	for _, e := range f.Entries {
		prefix, err := netip.ParsePrefix(e.CIDR)
		if err != nil {
			return nil, fmt.Errorf("geo table %s: bad cidr %q: %w", path, e.CIDR, err)
		}
		p.entries = append(p.entries, tableEntry{
			prefix: prefix,
			rec: Record{
				CountryISO:  e.Country,
				CountryCode: CountryCodeOf(e.Country),
				City:        e.City,
				Latitude:    e.Latitude,
				Longitude:   e.Longitude,
			},
		})
	}
	return p, nil
}

// Lookup scans the table for the longest prefix containing ip.
func (p *TableProvider) Lookup(_ context.Context, ip string) (*Record, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("geo: parse addr %q: %w", ip, err)
	}
	var best *Record
	bestBits := -1
	for i := range p.entries {
		e := &p.entries[i]
		if e.prefix.Contains(addr) && e.prefix.Bits() > bestBits {
			best = &e.rec
			bestBits = e.prefix.Bits()
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

// Count returns the number of table entries loaded.
func (p *TableProvider) Count() int { return len(p.entries) }
