package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
)

// encryptionKey — глобальный ключ шифрования номеров карт курьеров.
// Инициализируется один раз через InitEncryptionKey().
// encryptionKey is the global key for rider card number encryption.
// Initialized once via InitEncryptionKey().
var encryptionKey []byte

// InitEncryptionKey инициализирует ключ шифрования из переменной окружения.
// Вызывается один раз при старте приложения; без ключа номера карт из
// ведомостей нельзя ни записать, ни прочитать.
// InitEncryptionKey initializes the encryption key from an environment
// variable. Called once at startup; without the key, card numbers from the
// sheets can be neither written nor read.
func InitEncryptionKey() error {
	keyHex := os.Getenv("CARD_ENCRYPTION_KEY_HEX") // 32-byte key in HEX (64 characters)
	if keyHex == "" {
		log.Println("КРИТИЧЕСКАЯ ОШИБКА: Ключ шифрования CARD_ENCRYPTION_KEY_HEX не установлен в переменных окружения.")
		return fmt.Errorf("ключ шифрования CARD_ENCRYPTION_KEY_HEX не установлен")
	}

	var err error
	encryptionKey, err = hex.DecodeString(keyHex)
	if err != nil {
		log.Printf("КРИТИЧЕСКАЯ ОШИБКА: Не удалось декодировать CARD_ENCRYPTION_KEY_HEX: %v", err)
		return fmt.Errorf("некорректный формат ключа шифрования (не HEX): %w", err)
	}

	if len(encryptionKey) != 32 { // AES-256 requires a 32-byte key.
		log.Printf("КРИТИЧЕСКАЯ ОШИБКА: Длина ключа шифрования должна быть 32 байта (64 HEX символа), получено %d байт.", len(encryptionKey))
		return fmt.Errorf("некорректная длина ключа шифрования, требуется 32 байта, получено %d", len(encryptionKey))
	}

	log.Println("Ключ шифрования успешно инициализирован.")
	return nil
}

// newCardCipher собирает AEAD-шифр из глобального ключа.
// newCardCipher builds the AEAD cipher from the global key.
func newCardCipher() (cipher.AEAD, error) {
	if len(encryptionKey) == 0 {
		return nil, fmt.Errorf("ключ шифрования не инициализирован")
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания шифра: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}
	return gcm, nil
}

// EncryptCardNumber шифрует номер карты (AES-256-GCM) и возвращает
// hex-строку: nonce + шифртекст.
// EncryptCardNumber encrypts a card number (AES-256-GCM) and returns a hex
// string: nonce + ciphertext.
func EncryptCardNumber(plainTextCardNumber string) (string, error) {
	gcm, err := newCardCipher()
	if err != nil {
		log.Printf("EncryptCardNumber: %v", err)
		return "", err
	}

	// Never use more than 2^32 random nonces with a given key because of the risk of a repeat.
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		log.Printf("EncryptCardNumber: ошибка генерации nonce: %v", err)
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	cipherText := gcm.Seal(nonce, nonce, []byte(plainTextCardNumber), nil)
	return hex.EncodeToString(cipherText), nil
}

// DecryptCardNumber расшифровывает hex-строку, полученную из EncryptCardNumber.
// DecryptCardNumber decrypts a hex string produced by EncryptCardNumber.
func DecryptCardNumber(cipherTextCardNumberHex string) (string, error) {
	gcm, err := newCardCipher()
	if err != nil {
		log.Printf("DecryptCardNumber: %v", err)
		return "", err
	}

	cipherText, err := hex.DecodeString(cipherTextCardNumberHex)
	if err != nil {
		log.Printf("DecryptCardNumber: ошибка декодирования HEX зашифрованного номера карты: %v", err)
		return "", fmt.Errorf("не удалось декодировать зашифрованный номер карты из hex: %w", err)
	}

	if len(cipherText) < gcm.NonceSize() {
		log.Println("DecryptCardNumber: размер зашифрованного текста меньше размера nonce.")
		return "", fmt.Errorf("размер зашифрованного текста меньше размера nonce")
	}

	nonce, actualCipherText := cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():]
	plainText, err := gcm.Open(nil, nonce, actualCipherText, nil)
	if err != nil {
		log.Printf("DecryptCardNumber: ошибка дешифрования номера карты (возможно, неверный ключ или поврежденные данные): %v", err)
		return "", fmt.Errorf("ошибка дешифрования номера карты: %w", err)
	}

	return string(plainText), nil
}
