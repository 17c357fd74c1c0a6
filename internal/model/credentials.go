package model

import "fmt"

// Credentials 登录凭据，只在内存中使用
type Credentials struct {
	Username string
	Password string
	// Secret 当前 enable secret
	Secret string
	// NewSecret 修改口令操作使用，须经过两次输入确认
	NewSecret string
}

// String 打码输出，避免凭据被写入日志
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username:%q Password:%s Secret:%s NewSecret:%s}",
		c.Username, mask(c.Password), mask(c.Secret), mask(c.NewSecret))
}

// GoString 同 String，覆盖 %#v
func (c Credentials) GoString() string { return c.String() }

func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "******"
}
