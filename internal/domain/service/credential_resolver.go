package service

import (
	"splitchain/internal/domain/entity"
)

// AddressStrategy extracts a wallet address from one location inside an
// identity provider's token claims. Strategies are named so a failed
// resolution can say what was tried.
type AddressStrategy struct {
	Name    string
	Resolve func(claims map[string]interface{}) (string, bool)
}

// CredentialResolver turns the loosely-typed claims object supplied by the
// wallet-auth provider into a wallet address by running an explicit ordered
// list of strategies, first match wins.
type CredentialResolver struct {
	strategies []AddressStrategy
}

// NewCredentialResolver returns a resolver with the default strategy order:
// embedded wallet claim, then linked external accounts, then smart wallet.
func NewCredentialResolver() *CredentialResolver {
	return &CredentialResolver{
		strategies: []AddressStrategy{
			{Name: "wallet", Resolve: walletClaim},
			{Name: "linked_accounts", Resolve: linkedAccountsClaim},
			{Name: "smart_wallet", Resolve: smartWalletClaim},
		},
	}
}

// ResolveAddress returns the first valid address any strategy finds,
// normalized to lower case.
func (r *CredentialResolver) ResolveAddress(claims map[string]interface{}) (string, bool) {
	for _, strategy := range r.strategies {
		if address, ok := strategy.Resolve(claims); ok && entity.IsValidAddress(address) {
			return entity.NormalizeAddress(address), true
		}
	}
	return "", false
}

// Strategies returns the ordered strategy names, for diagnostics.
func (r *CredentialResolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name
	}
	return names
}

func walletClaim(claims map[string]interface{}) (string, bool) {
	wallet, ok := claims["wallet"].(map[string]interface{})
	if !ok {
		return "", false
	}
	address, ok := wallet["address"].(string)
	return address, ok
}

func linkedAccountsClaim(claims map[string]interface{}) (string, bool) {
	accounts, ok := claims["linked_accounts"].([]interface{})
	if !ok {
		return "", false
	}
	for _, raw := range accounts {
		account, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if kind, _ := account["type"].(string); kind != "wallet" {
			continue
		}
		if address, ok := account["address"].(string); ok {
			return address, true
		}
	}
	return "", false
}

func smartWalletClaim(claims map[string]interface{}) (string, bool) {
	wallet, ok := claims["smart_wallet"].(map[string]interface{})
	if !ok {
		return "", false
	}
	address, ok := wallet["address"].(string)
	return address, ok
}
