package opinion

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer produces the secp256k1 order signatures required by the Opinion
// Trade order endpoint. Requests are signed over the keccak256 hash of the
// canonical JSON body, wrapped in the standard Ethereum signed-message
// prefix.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and the
// target chain ID (56 for BNB Smart Chain mainnet).
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("opinion: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the wallet address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignPayload signs the canonical request body and returns a hex-encoded
// 65-byte signature with the recovery byte adjusted to the Ethereum
// convention (v in {27, 28}).
func (s *Signer) SignPayload(body []byte) (string, error) {
	bodyHash := ethcrypto.Keccak256(body)
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(bodyHash), bodyHash)
	digest := ethcrypto.Keccak256([]byte(prefixed))

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("opinion: sign payload: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}
