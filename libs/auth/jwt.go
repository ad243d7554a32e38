package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by access tokens. Sub is the organizer identity used for
// calendar lookups and meeting ownership.
type Claims struct {
	Sub   string   `json:"sub"`
	Email string   `json:"email,omitempty"`
	Iss   string   `json:"iss,omitempty"`
	Aud   Audience `json:"aud,omitempty"`
	Exp   int64    `json:"exp"`
	Nbf   int64    `json:"nbf,omitempty"`
	Iat   int64    `json:"iat"`
}

// Audience is the "aud" claim, which identity providers send either as a
// single string or as an array.
type Audience []string

func (a *Audience) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*a = Audience{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

func (a Audience) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a Audience) Contains(v string) bool {
	for _, x := range a {
		if x == v {
			return true
		}
	}
	return false
}

// Validate checks the time-based claims with leeway for clock skew and
// requires a subject.
func (c *Claims) Validate(now time.Time, leeway time.Duration) error {
	skew := int64(leeway / time.Second)
	unix := now.Unix()
	if c.Exp > 0 && unix > c.Exp+skew {
		return ErrInvalidToken
	}
	if c.Nbf > 0 && unix+skew < c.Nbf {
		return ErrInvalidToken
	}
	if strings.TrimSpace(c.Sub) == "" {
		return ErrInvalidToken
	}
	return nil
}

type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid"`
}

func ParseHeader(token string) (*Header, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var header Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, ErrInvalidToken
	}
	return &header, nil
}

func SignHS256(claims Claims, secret string) (string, error) {
	unsigned, err := encodeUnsigned(map[string]string{"alg": "HS256", "typ": "JWT"}, claims)
	if err != nil {
		return "", err
	}
	return unsigned + "." + hmacSHA256(unsigned, secret), nil
}

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	return validated(verifyHS256(token, secret))
}

func VerifyRS256(token string, pubKey crypto.PublicKey) (*Claims, error) {
	return validated(verifyRS256(token, pubKey))
}

func validated(c *Claims, err error) (*Claims, error) {
	if err != nil {
		return nil, err
	}
	if err := c.Validate(time.Now(), 0); err != nil {
		return nil, err
	}
	return c, nil
}

// verifyHS256 checks the signature only.
func verifyHS256(token, secret string) (*Claims, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	unsigned := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(hmacSHA256(unsigned, secret))) {
		return nil, ErrInvalidToken
	}
	return decodeRawClaims(parts[1])
}

// verifyRS256 checks the signature only.
func verifyRS256(token string, pubKey crypto.PublicKey) (*Claims, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	rsaKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidToken
	}
	hash := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, hash[:], sig); err != nil {
		return nil, ErrInvalidToken
	}
	return decodeRawClaims(parts[1])
}

func splitToken(token string) ([]string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	return parts, nil
}

func encodeUnsigned(header map[string]string, claims Claims) (string, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON), nil
}

func decodeRawClaims(segment string) (*Claims, error) {
	payload, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func hmacSHA256(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
