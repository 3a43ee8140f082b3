package ports

import "go.trai.ch/sa/internal/core/domain"

// LockCodec converts lock documents to and from their on-disk form.
//
//go:generate mockgen -source=lock.go -destination=mocks/mock_lock.go -package=mocks
type LockCodec interface {
	// Encode serializes doc deterministically.
	Encode(doc *domain.LockDocument) ([]byte, error)

	// Decode parses and validates data.
	Decode(data []byte) (*domain.LockDocument, error)
}

// LockStore persists lock documents.
type LockStore interface {
	// Load reads the document at path. Returns nil, nil if it does not exist.
	Load(path string) (*domain.LockDocument, error)

	// Save atomically replaces the document at path.
	Save(path string, doc *domain.LockDocument) error
}
