package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bitfsorg/docnotary-go/signer"
)

// KeyFileName is the encrypted seed file inside the data directory.
const KeyFileName = "identity.enc"

// KeyFilePath returns the key file location for dataDir.
func KeyFilePath(dataDir string) string {
	return filepath.Join(dataDir, KeyFileName)
}

// InitKeyFile encrypts the seed of mnemonic under password and writes it to
// the data directory. An existing key file is never overwritten.
func InitKeyFile(dataDir, mnemonic, password string) error {
	if dataDir == "" {
		return fmt.Errorf("%w: empty data directory", ErrKeyFileIO)
	}
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return err
	}
	encrypted, err := EncryptSeed(seed, password)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyFileIO, err)
	}

	f, err := os.OpenFile(KeyFilePath(dataDir), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrKeyFileExists
		}
		return fmt.Errorf("%w: %w", ErrKeyFileIO, err)
	}
	if _, err := f.Write(encrypted); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("%w: %w", ErrKeyFileIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyFileIO, err)
	}
	return nil
}

// Open decrypts the key file in dataDir and returns the wallet.
func Open(dataDir, password string, network signer.Network) (*Wallet, error) {
	data, err := os.ReadFile(KeyFilePath(dataDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrKeyFileIO, err)
	}

	seed, err := DecryptSeed(data, password)
	if err != nil {
		return nil, err
	}
	return NewWallet(seed, network)
}

// LoadSigner opens the key file and returns the default identity signer.
func LoadSigner(dataDir, password string, network signer.Network) (*signer.KeySigner, error) {
	w, err := Open(dataDir, password, network)
	if err != nil {
		return nil, err
	}
	return w.DefaultSigner()
}
