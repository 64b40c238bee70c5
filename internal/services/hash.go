package services

import (
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "fmt"

  "github.com/yungbote/skillforge-backend/internal/types"
)

// ContentHash digests the canonical serialization of a section tree. Struct
// field order fixes the key order, so equal trees always hash equal and any
// content change moves the digest. This is the sole drift-detection basis
// between versions.
func ContentHash(sections []types.Section) (string, error) {
  canonical, err := json.Marshal(sections)
  if err != nil {
    return "", fmt.Errorf("canonicalize sections: %w", err)
  }
  sum := sha256.Sum256(canonical)
  return hex.EncodeToString(sum[:]), nil
}
