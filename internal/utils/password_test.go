package utils

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

// 测试使用低开销参数
var testPasswordParams = PasswordParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// PasswordHasherTestSuite 密码哈希测试套件
type PasswordHasherTestSuite struct {
	suite.Suite
	hasher *PasswordHasher
}

func (suite *PasswordHasherTestSuite) SetupTest() {
	suite.hasher = NewPasswordHasher(testPasswordParams)
}

// TestHashEncodesParams 哈希中记录配置的参数
func (suite *PasswordHasherTestSuite) TestHashEncodesParams() {
	hash, err := suite.hasher.Hash("deck-builder-42")
	suite.Require().NoError(err)
	suite.True(strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)
	suite.Len(strings.Split(hash, "$"), 6)
}

// TestHashIsSalted 相同密码每次哈希不同
func (suite *PasswordHasherTestSuite) TestHashIsSalted() {
	first, err := suite.hasher.Hash("same-password")
	suite.Require().NoError(err)
	second, err := suite.hasher.Hash("same-password")
	suite.Require().NoError(err)
	suite.NotEqual(first, second)
}

// TestVerify 校验正确与错误密码
func (suite *PasswordHasherTestSuite) TestVerify() {
	hash, err := suite.hasher.Hash("Fire-Dragon!")
	suite.Require().NoError(err)

	tests := []struct {
		password string
		want     bool
	}{
		{"Fire-Dragon!", true},
		{"fire-dragon!", false},
		{"Fire-Dragon", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := suite.hasher.Verify(tt.password, hash)
		suite.NoError(err)
		suite.Equal(tt.want, ok, tt.password)
	}
}

// TestVerifyUsesStoredParams 配置变更后旧哈希仍可校验
func (suite *PasswordHasherTestSuite) TestVerifyUsesStoredParams() {
	hash, err := suite.hasher.Hash("password123")
	suite.Require().NoError(err)

	stronger := NewPasswordHasher(PasswordParams{Time: 2, Memory: 2048, Threads: 2})
	ok, err := stronger.Verify("password123", hash)
	suite.NoError(err)
	suite.True(ok)
	suite.True(stronger.NeedsRehash(hash))
	suite.False(suite.hasher.NeedsRehash(hash))
}

// TestVerifyInvalidHash 非法格式返回错误
func (suite *PasswordHasherTestSuite) TestVerifyInvalidHash() {
	tests := []struct {
		name    string
		encoded string
		want    error
	}{
		{"空字符串", "", ErrInvalidHash},
		{"bcrypt格式", "$2a$10$abcdefghijklmnopqrstuv", ErrInvalidHash},
		{"错误版本", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5", ErrIncompatibleVersion},
		{"参数缺失", "$argon2id$v=19$m=1024$c2FsdA$a2V5", ErrInvalidHash},
		{"盐非base64", "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5", ErrInvalidHash},
		{"空哈希", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$", ErrInvalidHash},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			ok, err := suite.hasher.Verify("password123", tt.encoded)
			suite.ErrorIs(err, tt.want)
			suite.False(ok)
			suite.True(suite.hasher.NeedsRehash(tt.encoded))
		})
	}
}

// TestDefaults 未配置字段回退到默认值
func (suite *PasswordHasherTestSuite) TestDefaults() {
	h := NewPasswordHasher(PasswordParams{Memory: 2048})
	p := h.Params()
	suite.Equal(uint32(2048), p.Memory)
	suite.Equal(DefaultPasswordParams().Time, p.Time)
	suite.Equal(DefaultPasswordParams().Threads, p.Threads)
	suite.Equal(DefaultPasswordParams().KeyLen, p.KeyLen)
	suite.Equal(DefaultPasswordParams().SaltLen, p.SaltLen)
}

// TestConcurrentHash 并发哈希互不影响
func (suite *PasswordHasherTestSuite) TestConcurrentHash() {
	var wg sync.WaitGroup
	hashes := make([]string, 8)
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hashes[i], _ = suite.hasher.Hash("concurrent")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, hash := range hashes {
		ok, err := suite.hasher.Verify("concurrent", hash)
		suite.NoError(err)
		suite.True(ok)
		suite.False(seen[hash])
		seen[hash] = true
	}
}

// TestGenerateSessionID 会话ID唯一且URL安全
func (suite *PasswordHasherTestSuite) TestGenerateSessionID() {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateSessionID()
		suite.Require().NoError(err)
		suite.Len(id, 32)
		suite.NotContains(id, "+")
		suite.NotContains(id, "/")
		suite.False(seen[id])
		seen[id] = true
	}
}

func TestPasswordHasherSuite(t *testing.T) {
	suite.Run(t, new(PasswordHasherTestSuite))
}
