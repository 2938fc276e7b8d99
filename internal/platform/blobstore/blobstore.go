package blobstore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

// Store keeps oversized artifact payloads as encrypted, content-addressed
// rows. Callers address blobs by the plaintext content hash; reads decrypt
// transparently so a blob-backed payload is indistinguishable from an inline
// one.
type Store struct {
	log   *logger.Logger
	blobs repos.BlobRepo
	aead  cipher.AEAD
}

// New derives the sealing key from the hex-encoded BLOB_KEY value. An empty
// key is rejected: payload-at-rest encryption is not optional.
func New(baseLog *logger.Logger, blobs repos.BlobRepo, hexKey string) (*Store, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("blob key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("blob key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Store{
		log:   baseLog.With("service", "BlobStore"),
		blobs: blobs,
		aead:  aead,
	}, nil
}

func HashPayload(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func (s *Store) Put(ctx context.Context, tx *gorm.DB, contentHash string, plaintext []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	ct := s.aead.Seal(nil, nonce, plaintext, []byte(contentHash))
	row := &types.ArtifactBlob{
		ID:          uuid.New(),
		ContentHash: contentHash,
		Ciphertext:  ct,
		Nonce:       nonce,
		SizeBytes:   int64(len(plaintext)),
	}
	return s.blobs.Put(ctx, tx, row)
}

func (s *Store) Get(ctx context.Context, tx *gorm.DB, contentHash string) ([]byte, error) {
	row, err := s.blobs.GetByContentHash(ctx, tx, contentHash)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("blob not found: %s", contentHash)
	}
	pt, err := s.aead.Open(nil, row.Nonce, row.Ciphertext, []byte(contentHash))
	if err != nil {
		return nil, fmt.Errorf("blob decrypt: %w", err)
	}
	return pt, nil
}

func (s *Store) Delete(ctx context.Context, tx *gorm.DB, contentHashes []string) error {
	return s.blobs.FullDeleteByContentHashes(ctx, tx, contentHashes)
}
