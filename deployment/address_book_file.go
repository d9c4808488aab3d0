package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadAddressBook reads an address book JSON file. A missing file is an empty address book.
func LoadAddressBook(path string) (*AddressBookMap, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewMemoryAddressBook(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read address book %s: %w", path, err)
	}

	var byChain AddressesByChain
	if err = json.Unmarshal(b, &byChain); err != nil {
		return nil, fmt.Errorf("failed to decode address book %s: %w", path, err)
	}

	ab, err := NewMemoryAddressBookFromMap(byChain)
	if err != nil {
		return nil, fmt.Errorf("invalid address book %s: %w", path, err)
	}

	return ab, nil
}

// SaveAddressBook writes the address book as indented JSON. The file is replaced atomically.
func SaveAddressBook(path string, ab AddressBook) error {
	addrs, err := ab.Addresses()
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(addrs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode address book: %w", err)
	}

	return WriteFileAtomic(path, append(b, '\n'))
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // gone after a successful rename

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp, err)
	}

	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
