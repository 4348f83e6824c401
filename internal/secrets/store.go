package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Per-user session token store (file, 0600) with AES-GCM obfuscation.
// Not a replacement for OS keychains but keeps tokens out of config.toml.

const fileName = "tokens.json"

// ErrNotFound is returned when no token is stored for a profile.
var ErrNotFound = errors.New("token not found")

type tokenFile struct {
	Tokens map[string]string `json:"tokens"` // profile -> base64(ciphertext)
}

// Store keeps one API token per backend profile (usually the base URL).
type Store struct {
	Dir string
}

// Default returns the store under the user config dir.
func Default() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("user config dir: %w", err)
	}
	return &Store{Dir: filepath.Join(dir, "kumss")}, nil
}

func (s *Store) Put(profile, token string) error {
	if profile = norm(profile); profile == "" {
		return fmt.Errorf("profile required")
	}
	path, err := s.path()
	if err != nil {
		return err
	}
	tf, err := load(path)
	if err != nil {
		return err
	}
	if tf.Tokens == nil {
		tf.Tokens = map[string]string{}
	}
	ct, err := encrypt([]byte(token))
	if err != nil {
		return err
	}
	tf.Tokens[profile] = base64.StdEncoding.EncodeToString(ct)
	return save(path, tf)
}

func (s *Store) Get(profile string) (string, error) {
	if profile = norm(profile); profile == "" {
		return "", fmt.Errorf("profile required")
	}
	path, err := s.path()
	if err != nil {
		return "", err
	}
	tf, err := load(path)
	if err != nil {
		return "", err
	}
	enc, ok := tf.Tokens[profile]
	if !ok {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return string(pt), nil
}

func (s *Store) Delete(profile string) error {
	if profile = norm(profile); profile == "" {
		return fmt.Errorf("profile required")
	}
	path, err := s.path()
	if err != nil {
		return err
	}
	tf, err := load(path)
	if err != nil {
		return err
	}
	delete(tf.Tokens, profile)
	return save(path, tf)
}

func (s *Store) path() (string, error) {
	if s == nil || s.Dir == "" {
		return "", fmt.Errorf("secrets dir not configured")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, fileName), nil
}

func load(path string) (tokenFile, error) {
	var tf tokenFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tokenFile{}, nil
		}
		return tf, err
	}
	if err := json.Unmarshal(data, &tf); err != nil {
		return tf, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return tf, nil
}

func save(path string, tf tokenFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func norm(s string) string {
	return strings.TrimRight(strings.TrimSpace(strings.ToLower(s)), "/")
}

func masterKey() []byte {
	base := fmt.Sprintf("kumss-%s-%s", runtime.GOOS, os.Getenv("USER"))
	hash := sha256.Sum256([]byte(base))
	return hash[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
