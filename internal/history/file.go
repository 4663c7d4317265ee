package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// fileDocument is the on-disk layout: one JSON document per account.
type fileDocument struct {
	SchemaVersion int                 `json:"schema_version"`
	Doctors       map[string][]string `json:"doctors"`
}

// FileStore persists notification history as a single JSON file. The
// file is opened fresh on every call and replaced atomically on write,
// so two processes pointed at the same path interleave safely.
type FileStore struct {
	path string
}

// NewFileStore builds a file-backed store. The path may contain an
// "{email}" placeholder so multiple accounts never share a namespace.
func NewFileStore(pathTemplate, account string) *FileStore {
	path := strings.ReplaceAll(pathTemplate, "{email}", account)
	return &FileStore{path: path}
}

func (s *FileStore) IsKnown(_ context.Context, doctorName string, at time.Time) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	for _, raw := range doc.Doctors[doctorName] {
		known, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			continue
		}
		if known.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) Record(_ context.Context, doctorName string, at time.Time) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Doctors[doctorName] = append(doc.Doctors[doctorName], at.Format(time.RFC3339))
	return s.save(doc)
}

func (s *FileStore) load() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// Created lazily on first write.
		return &fileDocument{SchemaVersion: SchemaVersion, Doctors: map[string][]string{}}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewStorageUnavailable(fmt.Errorf("corrupt history file %s: %w", s.path, err))
	}
	if doc.Doctors == nil {
		doc.Doctors = map[string][]string{}
	}
	return &doc, nil
}

func (s *FileStore) save(doc *fileDocument) error {
	doc.SchemaVersion = SchemaVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewStorageUnavailable(err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewStorageUnavailable(err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.NewStorageUnavailable(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.NewStorageUnavailable(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}
