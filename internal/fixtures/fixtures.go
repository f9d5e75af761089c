// Package fixtures loads the hand-authored sample records used to seed the
// market store.
package fixtures

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed market.yaml
var defaultFixtures []byte

// DefaultPriceCheck is the item name whose prices are read back when a
// fixture document does not name one.
const DefaultPriceCheck = "Phone"

// Set is one complete batch of seed data.
type Set struct {
	Users []User `yaml:"users"`
	Items []Item `yaml:"items"`
	// PriceCheck is the item name filtered on when reading prices back.
	PriceCheck string `yaml:"price_check"`
	// Assignment is optional; a zero value skips the owner step.
	Assignment Assignment `yaml:"owner_assignment"`
}

// User is a seed account. Password is plain text and hashed before storage.
type User struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	EmailAddress string `yaml:"email_address"`
}

type Item struct {
	Name        string `yaml:"name"`
	Price       int64  `yaml:"price"`
	Barcode     string `yaml:"barcode"`
	Description string `yaml:"description"`
}

// Assignment names the item that receives an owner and the owner's username.
type Assignment struct {
	Item     string `yaml:"item"`
	Username string `yaml:"username"`
}

// IsZero reports whether no assignment was configured.
func (a Assignment) IsZero() bool {
	return a.Item == "" && a.Username == ""
}

// Default returns the built-in market fixtures.
func Default() (*Set, error) {
	return Parse(defaultFixtures)
}

// Load reads fixtures from path, or the built-in set when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes and validates a YAML fixture document.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if set.PriceCheck == "" {
		set.PriceCheck = DefaultPriceCheck
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate checks required fields and uniqueness of usernames and barcodes.
func (s *Set) Validate() error {
	var errs []error

	usernames := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		if u.Username == "" || u.Password == "" || u.EmailAddress == "" {
			errs = append(errs, fmt.Errorf("users[%d]: username, password and email_address are required", i))
		}
		if usernames[u.Username] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate username %q", i, u.Username))
		}
		usernames[u.Username] = true
	}

	barcodes := make(map[string]bool, len(s.Items))
	items := make(map[string]bool, len(s.Items))
	for i, it := range s.Items {
		if it.Name == "" || it.Barcode == "" {
			errs = append(errs, fmt.Errorf("items[%d]: name and barcode are required", i))
		}
		if it.Price < 0 {
			errs = append(errs, fmt.Errorf("items[%d]: price must not be negative", i))
		}
		if barcodes[it.Barcode] {
			errs = append(errs, fmt.Errorf("items[%d]: duplicate barcode %q", i, it.Barcode))
		}
		barcodes[it.Barcode] = true
		items[it.Name] = true
	}

	if !s.Assignment.IsZero() {
		if s.Assignment.Item == "" || s.Assignment.Username == "" {
			errs = append(errs, errors.New("owner_assignment: item and username are both required"))
		} else if !items[s.Assignment.Item] {
			errs = append(errs, fmt.Errorf("owner_assignment: unknown item %q", s.Assignment.Item))
		}
	}

	return errors.Join(errs...)
}
