// Package clients loads the roster of registered participants the
// Session Controller needs during LOADING. spec.md §6 names this
// collaborator as "load() → Iterable<ClientId>"; the original
// implementation's equivalent reads participants from a config source
// at process start (original_source/src/client_manager/manager.cpp).
package clients

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nutc-exchange/core/internal/domain"
)

// Load reads a JSON array of client IDs from path, e.g.
// ["alice", "bob", "carol"].
func Load(path string) ([]domain.ClientID, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clients: failed to read registry file %q: %w", path, err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("clients: failed to parse registry file %q: %w", path, err)
	}

	out := make([]domain.ClientID, 0, len(ids))
	seen := make(map[domain.ClientID]bool, len(ids))
	for _, id := range ids {
		cid := domain.ClientID(id)
		if cid == "" {
			return nil, fmt.Errorf("clients: registry file %q contains an empty client id", path)
		}
		if seen[cid] {
			return nil, fmt.Errorf("%w: %q appears more than once in %q", domain.ErrClientAlreadyExists, cid, path)
		}
		seen[cid] = true
		out = append(out, cid)
	}
	return out, nil
}
