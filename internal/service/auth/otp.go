package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpLength = 6
	otpTTL    = 5 * time.Minute
)

// OTPStore holds short-lived one-time codes. Codes are single use: a
// successful consume removes the code atomically.
type OTPStore interface {
	Put(ctx context.Context, purpose, email, code string) error
	// Consume returns the stored code and deletes it in one step. A missing
	// or expired code returns ErrOTPNotFound.
	Consume(ctx context.Context, purpose, email string) (string, error)
}

type redisOTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{client: client, ttl: otpTTL}
}

func otpKey(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func (s *redisOTPStore) Put(ctx context.Context, purpose, email, code string) error {
	if err := s.client.Set(ctx, otpKey(purpose, email), code, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

func (s *redisOTPStore) Consume(ctx context.Context, purpose, email string) (string, error) {
	code, err := s.client.GetDel(ctx, otpKey(purpose, email)).Result()
	if err == redis.Nil {
		return "", ErrOTPNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume OTP: %w", err)
	}
	return code, nil
}

// generateOTP returns a random numeric code using crypto/rand.
func generateOTP() (string, error) {
	max := big.NewInt(10)
	code := make([]byte, otpLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate OTP: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
