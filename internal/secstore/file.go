package secstore

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id parameters for deriving the store key from the passphrase.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1

	keyLen   = chacha20poly1305.KeySize
	saltLen  = 16
	filePerm = 0o600
	dirPerm  = 0o700
)

// FileStore keeps secrets in a single JSON file. Each value is sealed
// individually with XChaCha20-Poly1305 under a key derived from the
// passphrase via Argon2id; the value's logical key is bound in as AAD so a
// ciphertext can not be replayed under a different slot.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
	salt []byte
}

type storeFile struct {
	Salt   string            `json:"salt"`
	Values map[string]string `json:"values"`
}

// NewFileStore opens (or creates) the store at path. The salt is persisted
// alongside the ciphertexts, so the same passphrase reopens the store after
// a restart.
func NewFileStore(path string, passphrase []byte) (*FileStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("secstore: passphrase must not be empty")
	}

	s := &FileStore{path: path}

	f, err := s.read()
	if err != nil {
		return nil, err
	}

	if f.Salt == "" {
		s.salt = make([]byte, saltLen)
		if _, err := rand.Read(s.salt); err != nil {
			return nil, fmt.Errorf("secstore: generating salt: %w", err)
		}
	} else {
		s.salt, err = base64.StdEncoding.DecodeString(f.Salt)
		if err != nil {
			return nil, fmt.Errorf("secstore: corrupt salt: %w", err)
		}
	}

	s.key = argon2.IDKey(passphrase, s.salt, argonTime, argonMemory, argonThreads, keyLen)
	return s, nil
}

func (s *FileStore) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}

	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}

	if f.Values == nil {
		f.Values = map[string]string{}
	}
	f.Values[key] = sealed
	return s.write(f)
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return "", false, err
	}

	sealed, ok := f.Values[key]
	if !ok {
		return "", false, nil
	}

	value, err := s.open(key, sealed)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}

	if _, ok := f.Values[key]; !ok {
		return nil
	}

	delete(f.Values, key)
	return s.write(f)
}

func (s *FileStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("secstore: removing store file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(key, value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("secstore: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secstore: generating nonce: %w", err)
	}

	out := make([]byte, 0, len(nonce)+len(value)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, []byte(value), []byte(key))...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *FileStore) open(key, sealed string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("secstore: corrupt value for %q: %w", key, err)
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("secstore: sealed value for %q too short", key)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("secstore: %w", err)
	}

	nonce, ct := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", fmt.Errorf("secstore: opening value for %q: %w", key, err)
	}
	return string(plain), nil
}

func (s *FileStore) read() (storeFile, error) {
	var f storeFile

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return f, fmt.Errorf("secstore: reading store file: %w", err)
	}

	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("secstore: corrupt store file: %w", err)
	}
	return f, nil
}

func (s *FileStore) write(f storeFile) error {
	f.Salt = base64.StdEncoding.EncodeToString(s.salt)

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("secstore: encoding store file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("secstore: creating store dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("secstore: writing store file: %w", err)
	}
	return nil
}
