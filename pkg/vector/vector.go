// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vector provides pluggable vector storage for knowledge retrieval.
package vector

import "context"

// Result is one similarity search hit.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Provider stores vectors and runs similarity search over them.
type Provider interface {
	// Upsert adds or updates a document with its pre-computed embedding.
	Upsert(ctx context.Context, collection, id string, vec []float32, metadata map[string]any) error

	// Search returns up to topK results ordered by descending similarity.
	Search(ctx context.Context, collection string, vec []float32, topK int) ([]Result, error)

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	Name() string

	Close() error
}
