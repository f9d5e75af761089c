package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	require.Len(t, set.Users, 1)
	assert.Equal(t, User{Username: "jsc", Password: "123456", EmailAddress: "jsc@jsc.com"}, set.Users[0])

	require.Len(t, set.Items, 3)
	assert.Equal(t, Item{Name: "Phone", Price: 500, Barcode: "893212299897", Description: "A high-quality smartphone"}, set.Items[0])
	assert.Equal(t, "Laptop", set.Items[1].Name)
	assert.Equal(t, "Keyboard", set.Items[2].Name)

	assert.Equal(t, "Phone", set.PriceCheck)
	assert.Equal(t, Assignment{Item: "Phone", Username: "jsc"}, set.Assignment)
}

func TestParsePriceCheck(t *testing.T) {
	set, err := Parse([]byte("items: [{name: Mouse, barcode: '1', price: 20}]"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPriceCheck, set.PriceCheck)

	set, err = Parse([]byte("items: [{name: Mouse, barcode: '1', price: 20}]\nprice_check: Mouse"))
	require.NoError(t, err)
	assert.Equal(t, "Mouse", set.PriceCheck)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - {username: ana, password: secret, email_address: ana@example.com}
items:
  - {name: Mouse, price: 20, barcode: "000000000001", description: Wireless mouse}
`), 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ana", set.Users[0].Username)
	assert.True(t, set.Assignment.IsZero())

	set, err = Load("")
	require.NoError(t, err)
	assert.Len(t, set.Items, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"malformed":          "users: [",
		"missing password":   "users: [{username: a, email_address: a@x}]",
		"duplicate username": "users: [{username: a, password: p, email_address: a@x}, {username: a, password: p, email_address: b@x}]",
		"duplicate barcode":  "items: [{name: A, barcode: '1'}, {name: B, barcode: '1'}]",
		"negative price":     "items: [{name: A, barcode: '1', price: -5}]",
		"unknown item":       "items: [{name: A, barcode: '1'}]\nowner_assignment: {item: B, username: a}",
		"half assignment":    "items: [{name: A, barcode: '1'}]\nowner_assignment: {item: A}",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}
