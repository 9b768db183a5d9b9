package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inamate/composer/internal/typeid"
)

// SampleDocumentID always resolves to a freshly built sample document.
const SampleDocumentID = "sample"

var (
	ErrInvalidDocumentID = errors.New("invalid document id")
	ErrDocumentNotFound  = errors.New("document not found")
)

// Store reads documents saved as <dir>/<id>.json. An empty dir serves only
// the sample document.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load returns the document with the given id, with the base invariant
// re-established.
func (s *Store) Load(id string) (*Document, error) {
	if id == SampleDocumentID {
		return NewSampleDocument(id), nil
	}
	if err := typeid.Validate(id, typeid.PrefixDocument); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocumentID, err)
	}
	if s.dir == "" {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return ReadFile(filepath.Join(s.dir, id+".json"))
}

// ReadFile decodes a document from a JSON file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	doc.Layers = EnsureBaseInvariant(doc.Layers)
	return &doc, nil
}
