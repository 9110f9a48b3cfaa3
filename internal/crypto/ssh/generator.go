// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ssh generates and parses SSH key pairs. Private keys are produced in
// the OpenSSH format (DSA keys in the traditional PEM format, which OpenSSH
// still reads), public keys in authorized_keys format.
package ssh // import "github.com/toeirei/ringwork/internal/crypto/ssh"

import (
	"crypto"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/toeirei/ringwork/internal/model"
	"golang.org/x/crypto/ssh"
)

// Factory creates key pairs. The zero value reads randomness from
// crypto/rand.
type Factory struct {
	// Rand overrides the entropy source; nil means crypto/rand.Reader.
	Rand io.Reader
}

func (f Factory) random() io.Reader {
	if f.Rand != nil {
		return f.Rand
	}
	return rand.Reader
}

// Generate creates a new key pair of the given algorithm and size. bits must
// already be normalized by the caller; unsupported sizes are an error.
func (f Factory) Generate(algorithm model.Algorithm, bits int, comment string) (model.KeyPair, error) {
	var (
		signer  crypto.Signer
		pemData []byte
		err     error
	)

	switch algorithm {
	case model.AlgorithmRSA:
		if bits < 1024 {
			return model.KeyPair{}, fmt.Errorf("rsa key size %d below minimum 1024", bits)
		}
		var key *rsa.PrivateKey
		if key, err = rsa.GenerateKey(f.random(), bits); err != nil {
			return model.KeyPair{}, fmt.Errorf("failed to generate rsa key: %w", err)
		}
		signer = key
	case model.AlgorithmECDSA:
		curve, cerr := curveForBits(bits)
		if cerr != nil {
			return model.KeyPair{}, cerr
		}
		var key *ecdsa.PrivateKey
		if key, err = ecdsa.GenerateKey(curve, f.random()); err != nil {
			return model.KeyPair{}, fmt.Errorf("failed to generate ecdsa key: %w", err)
		}
		signer = key
	case model.AlgorithmEd25519:
		var key ed25519.PrivateKey
		if _, key, err = ed25519.GenerateKey(f.random()); err != nil {
			return model.KeyPair{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		signer = key
	case model.AlgorithmDSA:
		if bits != 1024 {
			return model.KeyPair{}, fmt.Errorf("dsa key size must be 1024, got %d", bits)
		}
		key, derr := generateDSA(f.random())
		if derr != nil {
			return model.KeyPair{}, derr
		}
		if pemData, err = MarshalDSAPrivateKey(key); err != nil {
			return model.KeyPair{}, err
		}
		return buildPair(key, &key.PublicKey, string(pemData), comment)
	default:
		return model.KeyPair{}, fmt.Errorf("unsupported key algorithm %q", algorithm)
	}

	block, err := ssh.MarshalPrivateKey(signer, comment)
	if err != nil {
		return model.KeyPair{}, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return buildPair(signer, signer.Public(), string(pem.EncodeToMemory(block)), comment)
}

func curveForBits(bits int) (elliptic.Curve, error) {
	switch bits {
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported ecdsa key size %d", bits)
	}
}

func generateDSA(r io.Reader) (*dsa.PrivateKey, error) {
	var key dsa.PrivateKey
	if err := dsa.GenerateParameters(&key.Parameters, r, dsa.L1024N160); err != nil {
		return nil, fmt.Errorf("failed to generate dsa parameters: %w", err)
	}
	if err := dsa.GenerateKey(&key, r); err != nil {
		return nil, fmt.Errorf("failed to generate dsa key: %w", err)
	}
	return &key, nil
}

// buildPair derives the public line, fingerprint, algorithm and size from a
// private key.
func buildPair(priv any, pub crypto.PublicKey, privatePEM, comment string) (model.KeyPair, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return model.KeyPair{}, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	algorithm, bits, err := describe(priv)
	if err != nil {
		return model.KeyPair{}, err
	}
	return model.KeyPair{
		Algorithm:   algorithm,
		Bits:        bits,
		Comment:     comment,
		Fingerprint: ssh.FingerprintSHA256(sshPub),
		Private:     privatePEM,
		Public:      AuthorizedKeyLine(sshPub, comment),
	}, nil
}

// describe reports the algorithm and key size of a parsed private key.
func describe(priv any) (model.Algorithm, int, error) {
	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return model.AlgorithmRSA, k.N.BitLen(), nil
	case *ecdsa.PrivateKey:
		return model.AlgorithmECDSA, k.Curve.Params().BitSize, nil
	case ed25519.PrivateKey, *ed25519.PrivateKey:
		return model.AlgorithmEd25519, 256, nil
	case *dsa.PrivateKey:
		return model.AlgorithmDSA, k.P.BitLen(), nil
	default:
		return "", 0, fmt.Errorf("unsupported private key type %T", priv)
	}
}
