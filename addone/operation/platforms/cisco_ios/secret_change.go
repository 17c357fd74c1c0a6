package cisco_ios

import (
	"context"
	"fmt"
	"strings"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

// SecretChange 修改 enable secret：进入配置模式、下发新口令、回到特权模式
type SecretChange struct{}

func (s *SecretChange) Kind() model.OperationKind { return model.OpSecretChange }

// Validate 新口令须非空，且不能含空白或 "?"（IOS 会把 "?" 当作帮助请求）
func (s *SecretChange) Validate(creds model.Credentials) error {
	n := creds.NewSecret
	if n == "" {
		return fmt.Errorf("new secret is required")
	}
	if strings.ContainsAny(n, " \t\r\n?") {
		return fmt.Errorf("new secret must not contain whitespace or '?'")
	}
	return nil
}

func (s *SecretChange) Execute(ctx context.Context, exec operation.Executor, creds model.Credentials) (model.Data, error) {
	if err := s.Validate(creds); err != nil {
		return nil, err
	}

	out, err := exec.Run(ctx, "configure terminal", prompt.ConfigPrompt)
	if err != nil {
		return nil, err
	}
	if err := rejected("configure terminal", out); err != nil {
		return nil, err
	}

	// 口令不写入错误信息
	const setCmd = "enable secret"
	out, err = exec.Run(ctx, setCmd+" "+creds.NewSecret, prompt.ConfigPrompt, prompt.PrivExec)
	if err != nil {
		return nil, err
	}
	if err := rejected(setCmd, out); err != nil {
		return nil, err
	}
	confirm := out.Lines

	if out.Prompt == prompt.ConfigPrompt {
		out, err = exec.Run(ctx, "end", prompt.PrivExec)
		if err != nil {
			return nil, err
		}
	}
	return &model.SecretChangeData{Prompt: strings.TrimSpace(out.PromptText), Output: confirm}, nil
}
