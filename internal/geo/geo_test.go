package geo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testTable = `
entries:
  - cidr: "10.0.0.0/8"
    country: "JP"
    city: "tokyo"
    latitude: 35.6
    longitude: 139.7
  - cidr: "10.1.0.0/16"
    country: "KR"
    city: "seoul"
`

func loadTestTable(t *testing.T, body string) *TableProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geo.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	p, err := LoadTable(path)
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	return p
}

func TestLookupLongestPrefix(t *testing.T) {
	p := loadTestTable(t, testTable)
	ctx := context.Background()

	rec, err := p.Lookup(ctx, "10.2.3.4")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.CountryISO != "JP" || rec.City != "tokyo" {
		t.Fatalf("record = %+v", rec)
	}

	// The /16 wins over the /8 for addresses inside it.
	rec, err = p.Lookup(ctx, "10.1.9.9")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.CountryISO != "KR" {
		t.Fatalf("record = %+v, want the narrower prefix", rec)
	}
}

func TestLookupMiss(t *testing.T) {
	p := loadTestTable(t, testTable)
	if _, err := p.Lookup(context.Background(), "192.0.2.1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLookupBadAddress(t *testing.T) {
	p := loadTestTable(t, testTable)
	if _, err := p.Lookup(context.Background(), "not-an-ip"); err == nil {
		t.Fatalf("bad address accepted")
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	p, err := LoadTable(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must yield an empty provider: %v", err)
	}
	if p.Count() != 0 {
		t.Fatalf("count = %d, want 0", p.Count())
	}
	if _, err := p.Lookup(context.Background(), "10.0.0.1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadTableBadCIDR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.yaml")
	os.WriteFile(path, []byte("entries:\n  - cidr: \"nope\"\n    country: \"JP\"\n"), 0o644)
	if _, err := LoadTable(path); err == nil {
		t.Fatalf("bad cidr accepted")
	}
}

func TestCountryCodeOf(t *testing.T) {
	if CountryCodeOf("XX") != 0 {
		t.Fatalf("unknown country must map to 0")
	}
	if CountryCodeOf("JP") == 0 {
		t.Fatalf("JP must have a nonzero code")
	}
	if CountryCodeOf("jp") != CountryCodeOf("JP") {
		t.Fatalf("country codes must be case-insensitive")
	}
}
