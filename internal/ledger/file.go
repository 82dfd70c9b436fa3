package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type fileDocument struct {
	Users []User `json:"users"`
}

// NewFileStore opens the JSON document at path, creating it when missing.
// Every committed change rewrites the whole document through a temporary file
// and a rename, so a crash never leaves a half-written file behind.
func NewFileStore(path string) (Store, error) {
	if path == "" {
		return nil, fmt.Errorf("data file path is required")
	}

	doc, err := readDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeDocument(path, []User{}); err != nil {
			return nil, err
		}
		doc = fileDocument{}
	} else if err != nil {
		return nil, err
	}

	s := newInMemory(func(users []User) error { return writeDocument(path, users) })
	for _, u := range doc.Users {
		if u.Assets == nil {
			u.Assets = Assets{}
		}
		if u.Transactions == nil {
			u.Transactions = []TransactionRecord{}
		}
		if _, dup := s.users[u.UserID]; dup {
			return nil, fmt.Errorf("data file %s: duplicate user %q", path, u.UserID)
		}
		s.users[u.UserID] = u
		s.order = append(s.order, u.UserID)
	}
	return s, nil
}

func readDocument(path string) (fileDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileDocument{}, err
	}
	var doc fileDocument
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("decode data file %s: %w", path, err)
	}
	return doc, nil
}

func writeDocument(path string, users []User) error {
	payload, err := json.MarshalIndent(fileDocument{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write data file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close data file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
