package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/edeas123/aws-terraform-casper/types"
)

// FileStore keeps the inventory as a JSON object on local disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location implements Store.
func (s *FileStore) Location() string { return s.path }

// Save implements Store.
func (s *FileStore) Save(_ context.Context, inv types.Inventory) error {
	data, err := encodeInventory(inv)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state %s: %w", s.path, err)
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (types.Inventory, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, s.path)
		}
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}
	return decodeInventory(data, s.path)
}

func encodeInventory(inv types.Inventory) ([]byte, error) {
	if inv == nil {
		inv = types.Inventory{}
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

func decodeInventory(data []byte, source string) (types.Inventory, error) {
	inv := types.Inventory{}
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", source, err)
	}
	return inv, nil
}
