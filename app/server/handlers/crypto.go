package handlers

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// 文件内容用 AES-GCM 加密，nonce 放在密文最前面，
// bucket 与路径作为附加数据，密文挪到别的对象下无法解开
func (a *App) contentCipher() (cipher.AEAD, error) {
	block, err := aes.NewCipher(a.esk)
	if err != nil {
		return nil, fmt.Errorf("could not create new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}
	return gcm, nil
}

func objectAD(bucket, objectPath string) []byte {
	return []byte(bucket + "\x00" + objectPath)
}

func (a *App) sealContent(bucket, objectPath string, plaintext []byte) ([]byte, error) {
	gcm, err := a.contentCipher()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, objectAD(bucket, objectPath)), nil
}

func (a *App) openContent(bucket, objectPath string, sealed []byte) ([]byte, error) {
	gcm, err := a.contentCipher()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize()+gcm.Overhead() {
		return nil, fmt.Errorf("sealed content too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, objectAD(bucket, objectPath))
	if err != nil {
		return nil, fmt.Errorf("could not decrypt content: %w", err)
	}
	return plaintext, nil
}
