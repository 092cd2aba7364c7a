package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIDChainOrder(t *testing.T) {
	chain := defaultIDChain()

	tests := []struct {
		name string
		c    candidate
		want string
	}{
		{
			name: "structured id wins over everything",
			c: candidate{
				structuredID: "07545403",
				productURL:   "https://www.zara.com/tn/fr/chemise-p09999999.html",
				dataAttr:     "attr-1",
				name:         "Chemise",
			},
			want: "07545403",
		},
		{
			name: "url id beats data attribute",
			c: candidate{
				productURL: "https://www.zara.com/tn/fr/chemise-p09999999.html",
				dataAttr:   "attr-1",
				name:       "Chemise",
			},
			want: "09999999",
		},
		{
			name: "data attribute beats hash",
			c: candidate{
				productURL: "https://www.zara.com/tn/fr/nouveautes.html",
				dataAttr:   "attr-1",
				name:       "Chemise",
			},
			want: "attr-1",
		},
		{
			name: "nothing derivable",
			c:    candidate{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveID(chain, tt.c))
		})
	}
}

func TestIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"zara detail segment", "https://www.zara.com/tn/fr/chemise-en-lin-p07545403.html", "07545403"},
		{"slash separated segment", "https://shop.example.com/p12345678.html", "12345678"},
		{"long digit run fallback", "https://shop.example.com/item/4412345678", "4412345678"},
		{"short digit runs ignored", "https://shop.example.com/aisle/42/shelf/7", ""},
		{"empty url", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idFromURL(tt.url))
		})
	}
}

func TestHashID(t *testing.T) {
	t.Run("prefers url over name", func(t *testing.T) {
		byURL := hashID("https://example.com/a", "Chemise")
		byName := hashID("", "Chemise")
		assert.NotEqual(t, byURL, byName)
		assert.Equal(t, byURL, hashID("https://example.com/a", "changed"))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, hashID("", "Chemise"), hashID("", "Chemise"))
	})

	t.Run("fixed width with prefix", func(t *testing.T) {
		id := hashID("", "Chemise")
		assert.Len(t, id, 17)
		assert.Equal(t, byte('h'), id[0])
	})

	t.Run("empty input yields empty id", func(t *testing.T) {
		assert.Empty(t, hashID("", ""))
	})
}
