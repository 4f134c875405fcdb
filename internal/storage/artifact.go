package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

const gcmMagic = "GCM3NCR0"

// ArtifactStore uploads converted documents to S3, optionally
// encrypted with a passphrase. The wire format is
// magic(8) + salt(16) + nonce(12) + ciphertext-with-tag.
type ArtifactStore struct {
	client     *s3.Client
	bucketName string
	prefix     string
	passphrase string
}

// NewArtifactStore builds an ArtifactStore against the given bucket.
// An empty passphrase stores artifacts unencrypted.
func NewArtifactStore(ctx context.Context, bucketName, prefix, passphrase string) (*ArtifactStore, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &ArtifactStore{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
		prefix:     prefix,
		passphrase: passphrase,
	}, nil
}

// Upload stores an artifact under prefix/id/filename and returns the
// object key.
func (a *ArtifactStore) Upload(ctx context.Context, id, filename, contentType string, data []byte) (string, error) {
	payload := data
	encrypted := false
	if a.passphrase != "" {
		enc, err := encryptGCM(data, a.passphrase)
		if err != nil {
			return "", fmt.Errorf("encrypt artifact: %w", err)
		}
		payload = enc
		encrypted = true
	}

	key := path.Join(a.prefix, id, filename)
	meta := map[string]string{
		"name":         filename,
		"content-type": contentType,
	}
	if encrypted {
		meta["encrypted"] = "true"
		meta["encryption-format"] = gcmMagic
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(a.bucketName),
		Key:      aws.String(key),
		Body:     bytes.NewReader(payload),
		Metadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().
		Str("key", key).
		Int("size", len(data)).
		Bool("encrypted", encrypted).
		Msg("uploaded artifact to S3")
	return key, nil
}

// Download fetches and, when needed, decrypts a stored artifact.
func (a *ArtifactStore) Download(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	if len(data) >= len(gcmMagic) && string(data[:len(gcmMagic)]) == gcmMagic {
		if a.passphrase == "" {
			return nil, fmt.Errorf("artifact %s is encrypted but no passphrase is configured", key)
		}
		return decryptGCM(data, a.passphrase)
	}
	return data, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, 100000, 32, sha256.New)
}

func encryptGCM(data []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(gcmMagic)+len(salt)+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, gcmMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

func decryptGCM(data []byte, passphrase string) ([]byte, error) {
	// magic(8) + salt(16) + nonce(12) + ciphertext + tag(16)
	if len(data) < 8+16+12+16 {
		return nil, fmt.Errorf("encrypted artifact too short: %d bytes", len(data))
	}
	salt := data[8:24]
	nonce := data[24:36]
	ciphertext := data[36:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}
