// Copyright 2025 MediaMirror Authors
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

// Package cache provides the write-through lookup cache used during a
// synchronization run. It memoizes name -> surrogate-id resolutions
// against the store's append-only lookup tables.
//
// A Lookup is constructed per run and injected into the synchronizer;
// it is never shared across runs or goroutines.
package cache

import "context"

// Resolver is the store-side get-id-or-insert primitive for one lookup
// table. *storage.Store provides GetOrInsertCountry/GetOrInsertCity.
type Resolver func(ctx context.Context, name string) (int64, error)

// Lookup memoizes one lookup table.
type Lookup struct {
	resolve Resolver
	ids     map[string]int64
}

// NewLookup wraps a resolver with a memo table.
func NewLookup(resolve Resolver) *Lookup {
	return &Lookup{
		resolve: resolve,
		ids:     make(map[string]int64),
	}
}

// ID resolves name to its surrogate id, hitting the store only on a
// cache miss. The store insert makes the mapping durable, so subsequent
// runs resolve the same name to the same id.
func (l *Lookup) ID(ctx context.Context, name string) (int64, error) {
	if id, ok := l.ids[name]; ok {
		return id, nil
	}
	id, err := l.resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	l.ids[name] = id
	return id, nil
}

// Len returns the number of memoized entries (used by tests).
func (l *Lookup) Len() int {
	return len(l.ids)
}
