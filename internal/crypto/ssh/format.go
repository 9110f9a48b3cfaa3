// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package ssh

import (
	"crypto/dsa"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/ssh"
)

// AuthorizedKeyLine formats pub as a single authorized_keys line, with the
// comment appended when non-empty.
func AuthorizedKeyLine(pub ssh.PublicKey, comment string) string {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if comment = strings.TrimSpace(comment); comment != "" {
		line += " " + comment
	}
	return line
}

// dsaPrivateKey is the OpenSSL ASN.1 layout of a DSA private key, as read
// back by ssh.ParseDSAPrivateKey.
type dsaPrivateKey struct {
	Version int
	P       *big.Int
	Q       *big.Int
	G       *big.Int
	Pub     *big.Int
	Priv    *big.Int
}

// MarshalDSAPrivateKey encodes key as a "DSA PRIVATE KEY" PEM block.
// x/crypto/ssh cannot write DSA keys in the OpenSSH format.
func MarshalDSAPrivateKey(key *dsa.PrivateKey) ([]byte, error) {
	der, err := asn1.Marshal(dsaPrivateKey{
		P:    key.P,
		Q:    key.Q,
		G:    key.G,
		Pub:  key.Y,
		Priv: key.X,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dsa private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: der}), nil
}
