package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Param 为参与签名的单个字段。
type Param struct {
	Key   string
	Value string
}

// Params 保持插入顺序，签名输入不做重排。
type Params []Param

// Add 追加一个字段并返回新切片。
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Encode 按插入顺序拼接为 key1=value1&key2=value2，不做 URL 转义。
func (p Params) Encode() string {
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(param.Key)
		b.WriteByte('=')
		b.WriteString(param.Value)
	}
	return b.String()
}

// Sign 以 secret 为密钥计算 params 的 HMAC-SHA256 十六进制签名。
// 空 secret 允许使用。
func Sign(params Params, secret string) string {
	return signString(params.Encode(), secret)
}

func signString(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
