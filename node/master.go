// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/merklith/merklith/merklith"
)

// Master holds the validator key of the local node.
type Master struct {
	PrivateKey *ecdsa.PrivateKey
}

// Address returns the validator address derived from the key.
func (m *Master) Address() merklith.Address {
	return merklith.PubkeyToAddress(&m.PrivateKey.PublicKey)
}

// PublicKey returns the uncompressed secp256k1 public key bytes, the form
// the registry verifies signatures against.
func (m *Master) PublicKey() []byte {
	return crypto.FromECDSAPub(&m.PrivateKey.PublicKey)
}

// Sign signs the digest, producing a 65-byte recoverable signature.
func (m *Master) Sign(digest merklith.Bytes32) ([]byte, error) {
	return crypto.Sign(digest.Bytes(), m.PrivateKey)
}
