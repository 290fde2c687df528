package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// 密码哈希错误
var (
	ErrInvalidHash         = errors.New("密码哈希格式无效")
	ErrIncompatibleVersion = errors.New("argon2版本不兼容")
)

// PasswordParams Argon2id参数，Memory单位为KB
type PasswordParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultPasswordParams 默认参数
func DefaultPasswordParams() PasswordParams {
	return PasswordParams{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// withDefaults 未配置的字段使用默认值
func (p PasswordParams) withDefaults() PasswordParams {
	d := DefaultPasswordParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.Memory == 0 {
		p.Memory = d.Memory
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	return p
}

// PasswordHasher 账户密码哈希器
type PasswordHasher struct {
	params PasswordParams
}

// NewPasswordHasher 按配置创建哈希器
func NewPasswordHasher(params PasswordParams) *PasswordHasher {
	return &PasswordHasher{params: params.withDefaults()}
}

// Params 当前生效的参数
func (h *PasswordHasher) Params() PasswordParams {
	return h.params
}

// Hash 生成 $argon2id$v=19$m=..,t=..,p=..$salt$hash 格式的哈希
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify 校验密码，使用哈希中记录的参数而不是当前配置
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	stored, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	actual := argon2.IDKey([]byte(password), salt, stored.Time, stored.Memory, stored.Threads, stored.KeyLen)
	return subtle.ConstantTimeCompare(key, actual) == 1, nil
}

// NeedsRehash 哈希参数与当前配置不一致时返回true
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	stored, salt, _, err := decodeHash(encoded)
	if err != nil {
		return true
	}
	p := h.params
	return stored.Time != p.Time ||
		stored.Memory != p.Memory ||
		stored.Threads != p.Threads ||
		stored.KeyLen != p.KeyLen ||
		uint32(len(salt)) != p.SaltLen
}

// decodeHash 解析编码后的哈希
func decodeHash(encoded string) (PasswordParams, []byte, []byte, error) {
	var params PasswordParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return params, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, ErrInvalidHash
	}
	params.KeyLen = uint32(len(key))
	params.SaltLen = uint32(len(salt))
	return params, salt, key, nil
}

// GenerateSessionID 生成URL安全的会话ID
func GenerateSessionID() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
