package ports

// EncryptionService seals access tokens before they are persisted
type EncryptionService interface {
	EncryptToken(plaintext string) ([]byte, error)
	DecryptToken(blob []byte) (string, error)
}
