package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
)

// container is the on-disk encrypted file format: a random salt used to
// derive the data key from the operator-supplied passphrase, followed by
// an AES-256-GCM sealed blob of the plaintext SQLite file.
//
//	[16-byte salt][12-byte nonce][ciphertext || 16-byte GCM tag]
const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

var scryptN, scryptR, scryptP = 1 << 15, 8, 1

// encryptedContainer manages the encrypted-at-rest SQLite file: it holds
// the passphrase-derived salt and keeps a plaintext copy open in a
// private temp file that modernc.org/sqlite operates on directly. Seal
// re-encrypts the current temp-file contents back over the real path.
type encryptedContainer struct {
	realPath string
	tempPath string
	salt     []byte
	key      []byte
}

// openContainer decrypts path (if it exists) into a private temp file and
// returns the container plus the temp file path a *sql.DB should open. If
// path does not exist (or is empty), a fresh salt is generated and an
// empty temp file is created for the SQLite driver to initialize.
func openContainer(path, passphrase string) (*encryptedContainer, error) {
	c := &encryptedContainer{realPath: path}

	blob, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading encrypted container: %w", err)
		}
		blob = nil
	}

	tmp, err := os.CreateTemp("", "secretsmanager-*.db")
	if err != nil {
		return nil, fmt.Errorf("creating scratch database file: %w", err)
	}
	c.tempPath = tmp.Name()

	if len(blob) == 0 {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("generating container salt: %w", err)
		}
		c.salt = salt
		key, err := deriveKey(passphrase, salt)
		if err != nil {
			tmp.Close()
			return nil, err
		}
		c.key = key
		return c, tmp.Close()
	}
	defer tmp.Close()

	if len(blob) < saltSize+nonceSize {
		return nil, fmt.Errorf("encrypted container %s is truncated", path)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := decrypt(key, nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting container (wrong SM_ENCRYPTION_KEY?): %w", err)
	}

	if _, err := tmp.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing scratch database file: %w", err)
	}

	c.salt = salt
	c.key = key
	return c, nil
}

// Seal re-encrypts the current contents of the scratch file back over the
// real container path, using a fresh nonce each time.
func (c *encryptedContainer) Seal() error {
	plaintext, err := os.ReadFile(c.tempPath)
	if err != nil {
		return fmt.Errorf("reading scratch database file: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating seal nonce: %w", err)
	}

	ciphertext, err := encrypt(c.key, nonce, plaintext)
	if err != nil {
		return err
	}

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, c.salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	tmpOut := c.realPath + ".tmp"
	if err := os.WriteFile(tmpOut, blob, 0o600); err != nil {
		return fmt.Errorf("writing encrypted container: %w", err)
	}
	return os.Rename(tmpOut, c.realPath)
}

// CleanupScratch removes the private plaintext temp file. Must only be
// called after a final Seal.
func (c *encryptedContainer) CleanupScratch() error {
	return os.Remove(c.tempPath)
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("deriving container key: %w", err)
	}
	return key, nil
}

func encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("initializing AEAD: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

func decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("initializing AEAD: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return plaintext, nil
}
