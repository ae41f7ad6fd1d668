// internal/identity/identity.go
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vuen/kiosk/internal/types"
)

const fileName = "client_id"

// LoadOrCreate returns the durable client identity for this kiosk,
// generating and persisting a new one on first use. The identity is never
// mutated or deleted afterwards; it outlives sessions and restarts.
func LoadOrCreate(dataDir string) (types.ClientID, error) {
	path := filepath.Join(dataDir, fileName)

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return types.ClientID(id), nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read client identity: %w", err)
	}

	id := types.NewClientID()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(string(id)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write client identity: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename client identity: %w", err)
	}

	return id, nil
}
