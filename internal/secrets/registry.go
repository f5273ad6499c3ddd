// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// KeychainService is the keychain service name for keychain: references.
const KeychainService = "tingle"

// Provider resolves the key part of a reference.
type Provider interface {
	// Scheme is the reference prefix routed to this provider.
	Scheme() string

	Resolve(ctx context.Context, key string) (string, error)
}

// Registry routes references to providers by scheme.
type Registry struct {
	providers map[string]Provider
}

var schemeRegex = regexp.MustCompile(`^([a-z][a-z0-9]*):(.*)$`)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Default returns a registry with the env, file and keychain providers.
func Default() *Registry {
	r := NewRegistry()
	_ = r.Register(NewEnvProvider())
	_ = r.Register(NewFileProvider(0))
	_ = r.Register(NewKeychainProvider(KeychainService))
	return r
}

// Register adds a provider. Each scheme may be registered once.
func (r *Registry) Register(p Provider) error {
	scheme := p.Scheme()
	if _, exists := r.providers[scheme]; exists {
		return fmt.Errorf("provider for scheme %q already registered", scheme)
	}
	r.providers[scheme] = p
	return nil
}

// IsReference reports whether value would be routed to a provider.
func (r *Registry) IsReference(value string) bool {
	_, _, ok := r.parse(value)
	return ok
}

// Resolve returns the secret value value refers to, or value itself when
// it is not a reference.
func (r *Registry) Resolve(ctx context.Context, value string) (string, error) {
	provider, key, ok := r.parse(value)
	if !ok {
		return value, nil
	}
	if strings.TrimSpace(key) == "" {
		return "", newError(CategoryInvalidSyntax, provider.Scheme(), key, "empty key", nil)
	}

	secret, err := provider.Resolve(ctx, key)
	if err != nil {
		return "", err
	}
	return secret, nil
}

func (r *Registry) parse(value string) (Provider, string, bool) {
	m := schemeRegex.FindStringSubmatch(value)
	if m == nil {
		return nil, "", false
	}
	p, ok := r.providers[m[1]]
	if !ok {
		return nil, "", false
	}
	return p, m[2], true
}
