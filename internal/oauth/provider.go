// Package oauth talks to the marketplace and payments authorization
// servers: PKCE helpers, authorization URLs, code exchange and refresh.
package oauth

import (
	"strings"

	"github.com/edvin/oportunia/internal/model"
)

// DefaultAPIBaseURL hosts the token endpoint for both providers.
const DefaultAPIBaseURL = "https://api.mercadolibre.com"

// Provider describes one authorization server.
type Provider struct {
	Slot   model.Slot
	Brand  string
	Scopes []string
	// SiteBrands overrides Brand for sites with a localized domain.
	SiteBrands map[string]string
}

var providers = map[model.Slot]Provider{
	model.SlotMarketplace: {
		Slot:       model.SlotMarketplace,
		Brand:      "mercadolibre",
		Scopes:     []string{"read", "offline_access", "items", "searches"},
		SiteBrands: map[string]string{"MLB": "mercadolivre"},
	},
	model.SlotPayments: {
		Slot:   model.SlotPayments,
		Brand:  "mercadopago",
		Scopes: []string{"read", "write", "offline_access"},
	},
}

// siteDomains maps a site (region) id to its top-level domain.
var siteDomains = map[string]string{
	"MLA": "com.ar",
	"MLB": "com.br",
	"MLM": "com.mx",
	"MLC": "cl",
	"MCO": "com.co",
	"MLU": "com.uy",
	"MPE": "com.pe",
	"MLV": "com.ve",
	"MEC": "com.ec",
}

// ProviderFor returns the provider registered for a slot.
func ProviderFor(slot model.Slot) (Provider, bool) {
	p, ok := providers[slot]
	return p, ok
}

// AuthURL returns the authorization endpoint for a site. Unknown sites fall
// back to the generic .com domain.
func (p Provider) AuthURL(site string) string {
	site = strings.ToUpper(strings.TrimSpace(site))
	tld, ok := siteDomains[site]
	if !ok {
		return "https://auth." + p.Brand + ".com/authorization"
	}
	brand := p.Brand
	if b, ok := p.SiteBrands[site]; ok {
		brand = b
	}
	return "https://auth." + brand + "." + tld + "/authorization"
}
