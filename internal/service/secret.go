package service

import (
	"errors"
	"strings"
)

// SecretReader 读取一次不回显的输入
type SecretReader func(prompt string) (string, error)

// ErrSecretMismatch 两次输入不一致
var ErrSecretMismatch = errors.New("secrets do not match")

// ConfirmNewSecret 要求新口令输入两次。不一致或为空时提示后重新输入，
// 直到一致或读取出错（如中断）。reprompts 为重新输入的次数
func ConfirmNewSecret(read SecretReader, notify func(error)) (secret string, reprompts int, err error) {
	for {
		first, err := read("Enter new enable secret: ")
		if err != nil {
			return "", reprompts, err
		}
		second, err := read("Confirm new enable secret: ")
		if err != nil {
			return "", reprompts, err
		}
		if first == second && strings.TrimSpace(first) != "" {
			return first, reprompts, nil
		}

		reprompts++
		if notify != nil {
			if first != second {
				notify(ErrSecretMismatch)
			} else {
				notify(errors.New("secret must not be empty"))
			}
		}
	}
}
