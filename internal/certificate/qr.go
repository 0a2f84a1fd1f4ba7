package certificate

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-onboarding/internal/models"
)

// QRGenerator renders the verification QR printed on award
// certificates. The payload is AES-encrypted so a scanned code can be
// verified server-side but not forged from the visible fields.
type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

type qrPayload struct {
	CertificateNumber string `json:"certificate_number"`
	ApplicationNumber string `json:"application_number"`
	StallID           string `json:"stall_id"`
	SectionName       string `json:"section_name"`
	IssuedAt          int64  `json:"issued_at"`
}

func (q *QRGenerator) GenerateEncryptedQR(cert models.Certificate, applicationNumber, sectionName string) ([]byte, error) {
	data, err := json.Marshal(qrPayload{
		CertificateNumber: cert.CertificateNumber,
		ApplicationNumber: applicationNumber,
		StallID:           cert.StallID,
		SectionName:       sectionName,
		IssuedAt:          cert.IssuedAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
