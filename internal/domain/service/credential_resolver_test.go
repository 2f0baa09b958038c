package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAddressWalletClaim(t *testing.T) {
	resolver := NewCredentialResolver()

	address, ok := resolver.ResolveAddress(map[string]interface{}{
		"wallet": map[string]interface{}{"address": "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
	})

	assert.True(t, ok)
	assert.Equal(t, addrA, address)
}

func TestResolveAddressLinkedAccounts(t *testing.T) {
	resolver := NewCredentialResolver()

	address, ok := resolver.ResolveAddress(map[string]interface{}{
		"linked_accounts": []interface{}{
			map[string]interface{}{"type": "email", "address": "someone@example.com"},
			map[string]interface{}{"type": "wallet", "address": addrB},
		},
	})

	assert.True(t, ok)
	assert.Equal(t, addrB, address)
}

func TestResolveAddressStrategyOrder(t *testing.T) {
	resolver := NewCredentialResolver()

	// The wallet claim wins over linked accounts and smart wallet.
	address, ok := resolver.ResolveAddress(map[string]interface{}{
		"wallet": map[string]interface{}{"address": addrA},
		"linked_accounts": []interface{}{
			map[string]interface{}{"type": "wallet", "address": addrB},
		},
		"smart_wallet": map[string]interface{}{"address": addrC},
	})

	assert.True(t, ok)
	assert.Equal(t, addrA, address)
	assert.Equal(t, []string{"wallet", "linked_accounts", "smart_wallet"}, resolver.Strategies())
}

func TestResolveAddressInvalidOrMissing(t *testing.T) {
	resolver := NewCredentialResolver()

	_, ok := resolver.ResolveAddress(map[string]interface{}{})
	assert.False(t, ok)

	// A present but malformed address falls through to the next strategy.
	address, ok := resolver.ResolveAddress(map[string]interface{}{
		"wallet":       map[string]interface{}{"address": "not-an-address"},
		"smart_wallet": map[string]interface{}{"address": addrC},
	})
	assert.True(t, ok)
	assert.Equal(t, addrC, address)
}
