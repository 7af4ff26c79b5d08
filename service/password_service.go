package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2SaltLength = 16
	argon2KeyLength  = 32
	argon2ID         = "argon2id"

	// Upper bound on concurrent hash computations. Each argon2id call pins
	// its configured memory for the duration, so a burst of logins must not
	// be allowed to multiply that cost unbounded.
	maxConcurrentHashes = 8
)

var ErrPasswordHash = errors.New("failed to hash password")

// PasswordService derives and verifies salted argon2id password digests.
// Digests are encoded in PHC string format, so the parameters and salt
// travel with the hash and verification needs no external state.
type PasswordService struct {
	memoryKB    uint32
	time        uint32
	parallelism uint8
	sem         chan struct{}
}

func NewPasswordService(memoryKB, timeCost uint32, parallelism uint8) *PasswordService {
	if memoryKB == 0 {
		memoryKB = 64 * 1024
	}
	if timeCost == 0 {
		timeCost = 1
	}
	if parallelism == 0 {
		parallelism = 4
	}
	return &PasswordService{
		memoryKB:    memoryKB,
		time:        timeCost,
		parallelism: parallelism,
		sem:         make(chan struct{}, maxConcurrentHashes),
	}
}

// HashPassword derives a salted digest from the plaintext. A fresh random
// salt is generated per call, so hashing the same password twice yields two
// different digests that both verify.
func (s *PasswordService) HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		logger.Log.WithError(err).Error("Failed to generate password salt")
		return "", ErrPasswordHash
	}

	s.sem <- struct{}{}
	hash := argon2.IDKey([]byte(password), salt, s.time, s.memoryKB, s.parallelism, argon2KeyLength)
	<-s.sem

	encoded := fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		s.memoryKB,
		s.time,
		s.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// CheckPasswordHash recomputes the digest using the salt and parameters
// embedded in encoded and compares in constant time. A malformed digest
// verifies as false rather than surfacing an error; the caller treats it
// as an authentication failure.
func (s *PasswordService) CheckPasswordHash(password, encoded string) bool {
	memoryKB, timeCost, parallelism, salt, hash, err := decodeArgon2Hash(encoded)
	if err != nil {
		logger.Log.WithError(err).Warn("Stored password digest is malformed")
		return false
	}

	s.sem <- struct{}{}
	computed := argon2.IDKey([]byte(password), salt, timeCost, memoryKB, parallelism, uint32(len(hash)))
	<-s.sem

	return subtle.ConstantTimeCompare(computed, hash) == 1
}

func decodeArgon2Hash(encoded string) (memoryKB, timeCost uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2ID {
		return 0, 0, 0, nil, nil, errors.New("invalid digest format")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, nil, nil, errors.New("invalid digest version")
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return 0, 0, 0, nil, nil, errors.New("invalid digest parameters")
	}
	for _, param := range params {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			return 0, 0, 0, nil, nil, errors.New("invalid digest parameters")
		}
		switch kv[0] {
		case "m":
			v, perr := strconv.ParseUint(kv[1], 10, 32)
			if perr != nil || v == 0 {
				return 0, 0, 0, nil, nil, errors.New("invalid memory parameter")
			}
			memoryKB = uint32(v)
		case "t":
			v, perr := strconv.ParseUint(kv[1], 10, 32)
			if perr != nil || v == 0 {
				return 0, 0, 0, nil, nil, errors.New("invalid time parameter")
			}
			timeCost = uint32(v)
		case "p":
			v, perr := strconv.ParseUint(kv[1], 10, 8)
			if perr != nil || v == 0 {
				return 0, 0, 0, nil, nil, errors.New("invalid parallelism parameter")
			}
			parallelism = uint8(v)
		default:
			return 0, 0, 0, nil, nil, errors.New("unknown digest parameter")
		}
	}
	if memoryKB == 0 || timeCost == 0 || parallelism == 0 {
		return 0, 0, 0, nil, nil, errors.New("missing digest parameters")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid salt encoding")
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid hash encoding")
	}
	return memoryKB, timeCost, parallelism, salt, hash, nil
}
