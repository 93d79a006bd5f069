// Copyright 2025 Poiesic Systems
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


// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	gateway := mock.NewMockGateway("nomic-embed-text").
//	    WithModel("m1", 8).
//	    WithEmbedFunc(func(ctx context.Context, text, model string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Simulate an outage
//	gateway.SetUnavailable(true)
//
//	// Check call counts
//	count := gateway.CallCount()
//
// # Default Behavior
//
//   - MockGateway: deterministic unit vectors from an FNV hash of the text,
//     ErrModelNotFound for unregistered models, ErrProviderUnavailable while
//     offline, and the same per-model dimension guard as real gateways
//   - MockRefiner: collapses repeated whitespace
package mock
