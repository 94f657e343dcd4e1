package node

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/term"

	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// encryptionParams holds the Argon2id parameters an identity file was
// sealed with; stored alongside the ciphertext so a future, differently
// tuned binary can still open an older file.
type encryptionParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

func defaultEncryptionParams() encryptionParams {
	return encryptionParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

const saltSize = 32

// Identity is the node's persistent keypair and derived address. It is
// generated once on first run and decrypted from disk on every
// subsequent one (spec.md §6's per-node identity file, encrypted at rest
// under a passphrase).
type Identity struct {
	Key     *crypto.PrivateKey
	Address types.Address
}

// identityFile is the on-disk JSON shape of an identity file: the
// address in clear (so a node can announce itself before ever being
// unlocked) plus the encrypted private key.
type identityFile struct {
	Address   string `json:"address"`
	Encrypted []byte `json:"encrypted_key"`
}

// LoadOrCreateIdentity opens the identity file at path, prompting for
// its passphrase on the controlling terminal. If path does not exist, a
// fresh keypair is generated, confirmed with a second passphrase prompt,
// and sealed to path before being returned.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createIdentity(path)
	} else if err != nil {
		return nil, fmt.Errorf("stat identity file: %w", err)
	}
	return openIdentity(path)
}

func createIdentity(path string) (*Identity, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate node key: %w", err)
	}
	addr := crypto.AddressFromPubKey(key.PublicKey())

	passphrase, err := promptNewPassphrase()
	if err != nil {
		return nil, err
	}
	defer zero(passphrase)

	encrypted, err := encryptKey(key.Serialize(), passphrase, defaultEncryptionParams())
	if err != nil {
		return nil, fmt.Errorf("seal node key: %w", err)
	}

	out := identityFile{Address: addr.String(), Encrypted: encrypted}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode identity file: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return nil, fmt.Errorf("write identity file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("finalize identity file: %w", err)
	}

	return &Identity{Key: key, Address: addr}, nil
}

func openIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	var in identityFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode identity file: %w", err)
	}

	passphrase, err := promptPassphrase("Identity passphrase: ")
	if err != nil {
		return nil, err
	}
	defer zero(passphrase)

	raw, err := decryptKey(in.Encrypted, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlock identity: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse unlocked key: %w", err)
	}

	addr, err := types.ParseAddress(in.Address)
	if err != nil {
		return nil, fmt.Errorf("parse identity address: %w", err)
	}
	if derived := crypto.AddressFromPubKey(key.PublicKey()); derived != addr {
		return nil, fmt.Errorf("identity file is corrupt: stored address does not match its key")
	}

	return &Identity{Key: key, Address: addr}, nil
}

func promptNewPassphrase() ([]byte, error) {
	first, err := promptPassphrase("New identity passphrase: ")
	if err != nil {
		return nil, err
	}
	second, err := promptPassphrase("Confirm passphrase: ")
	if err != nil {
		zero(first)
		return nil, err
	}
	defer zero(second)
	if string(first) != string(second) {
		zero(first)
		return nil, fmt.Errorf("passphrases did not match")
	}
	return first, nil
}

func promptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// encryptKey seals data with passphrase using Argon2id key derivation
// plus XChaCha20-Poly1305, the same scheme the rest of the corpus uses
// for wallet key material.
//
// Output format: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
func encryptKey(data, passphrase []byte, params encryptionParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, data, nil)

	out := make([]byte, 0, saltSize+9+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func decryptKey(encrypted, passphrase []byte) ([]byte, error) {
	const headerSize = saltSize + 9
	nonceSize := chacha20poly1305.NonceSizeX
	if len(encrypted) < headerSize+nonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("encrypted key material is truncated")
	}

	salt := encrypted[:saltSize]
	params := encryptionParams{
		Memory:      binary.LittleEndian.Uint32(encrypted[saltSize:]),
		Iterations:  binary.LittleEndian.Uint32(encrypted[saltSize+4:]),
		Parallelism: encrypted[saltSize+8],
	}
	nonce := encrypted[headerSize : headerSize+nonceSize]
	ciphertext := encrypted[headerSize+nonceSize:]

	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wrong passphrase or corrupt identity file")
	}
	return plaintext, nil
}

func deriveKey(passphrase, salt []byte, params encryptionParams) []byte {
	return argon2.IDKey(passphrase, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}
