// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package ssh

import (
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/toeirei/ringwork/internal/model"
	"golang.org/x/crypto/ssh"
)

// ErrPassphraseProtected is returned for encrypted private keys; imports
// only accept unencrypted keys.
var ErrPassphraseProtected = errors.New("private key is passphrase protected")

const opensshMagic = "openssh-key-v1\x00"

// Parse reads an unencrypted private key in any format understood by
// x/crypto/ssh (OpenSSH, PKCS#1, PKCS#8, SEC1, DSA) and derives the full key
// pair from it. The comment is taken from the key itself when the OpenSSH
// format carries one.
func (f Factory) Parse(private string) (model.KeyPair, error) {
	text := strings.TrimSpace(private)
	if text == "" {
		return model.KeyPair{}, fmt.Errorf("empty private key")
	}
	raw, err := ssh.ParseRawPrivateKey([]byte(text))
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return model.KeyPair{}, ErrPassphraseProtected
		}
		return model.KeyPair{}, fmt.Errorf("invalid private key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(raw)
	if err != nil {
		return model.KeyPair{}, fmt.Errorf("invalid private key: %w", err)
	}
	pub, ok := signer.PublicKey().(ssh.CryptoPublicKey)
	if !ok {
		return model.KeyPair{}, fmt.Errorf("unsupported public key type %s", signer.PublicKey().Type())
	}
	return buildPair(raw, pub.CryptoPublicKey(), text+"\n", Comment(text))
}

// Comment returns the comment embedded in an unencrypted OpenSSH private key,
// or "" for every other format or on any parse error.
func Comment(private string) string {
	block, _ := pem.Decode([]byte(strings.TrimSpace(private)))
	if block == nil || block.Type != "OPENSSH PRIVATE KEY" {
		return ""
	}
	data := block.Bytes
	if !strings.HasPrefix(string(data), opensshMagic) {
		return ""
	}

	var w struct {
		CipherName   string
		KdfName      string
		KdfOpts      string
		NumKeys      uint32
		PubKey       []byte
		PrivKeyBlock []byte
	}
	if err := ssh.Unmarshal(data[len(opensshMagic):], &w); err != nil || w.CipherName != "none" {
		return ""
	}

	var pk1 struct {
		Check1  uint32
		Check2  uint32
		Keytype string
		Rest    []byte `ssh:"rest"`
	}
	if err := ssh.Unmarshal(w.PrivKeyBlock, &pk1); err != nil || pk1.Check1 != pk1.Check2 {
		return ""
	}
	return commentFromRest(pk1.Keytype, pk1.Rest)
}

// commentFromRest skips the key material of keytype and returns the comment
// that follows it.
func commentFromRest(keytype string, rest []byte) string {
	switch keytype {
	case ssh.KeyAlgoRSA:
		var key struct {
			N, E, D, Iqmp, P, Q *big.Int
			Comment             string
			Pad                 []byte `ssh:"rest"`
		}
		if ssh.Unmarshal(rest, &key) == nil {
			return key.Comment
		}
	case ssh.KeyAlgoED25519:
		var key struct {
			Pub     []byte
			Priv    []byte
			Comment string
			Pad     []byte `ssh:"rest"`
		}
		if ssh.Unmarshal(rest, &key) == nil {
			return key.Comment
		}
	case ssh.KeyAlgoECDSA256, ssh.KeyAlgoECDSA384, ssh.KeyAlgoECDSA521:
		var key struct {
			Curve   string
			Pub     []byte
			D       *big.Int
			Comment string
			Pad     []byte `ssh:"rest"`
		}
		if ssh.Unmarshal(rest, &key) == nil {
			return key.Comment
		}
	case ssh.KeyAlgoDSA:
		var key struct {
			P, Q, G, Y, X *big.Int
			Comment       string
			Pad           []byte `ssh:"rest"`
		}
		if ssh.Unmarshal(rest, &key) == nil {
			return key.Comment
		}
	}
	return ""
}
