package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"SafeCircle/config"
)

// HashPhone 手机号的加盐哈希，用于等值查询而不暴露明文
func HashPhone(phone string) string {
	salt := config.Cfg.PhoneHashSalt

	sum := sha256.Sum256([]byte(salt + ":" + phone))
	return hex.EncodeToString(sum[:])
}
