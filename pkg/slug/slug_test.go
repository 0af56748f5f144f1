package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Figurine", "figurine"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"  padded  ", "padded"},
		{"Hello   World!", "hello-world"},
		{"a--b__c", "a-b-c"},
		{"Crème Brûlée", "creme-brulee"},
		{"Straße 5", "strasse-5"},
		{"Smørrebrød", "smorrebrod"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Kadın Giyim", "kadin-giyim"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, Generate(tc.input))
		})
	}
}
