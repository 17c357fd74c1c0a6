package operation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

// ErrTimeout 命令在超时前没有等到结束提示符
var ErrTimeout = errors.New("command timed out")

// ErrUnsupported 平台不支持该操作
var ErrUnsupported = errors.New("operation not supported on platform")

// RejectedError 设备拒绝了命令（% Invalid input 等）
type RejectedError struct {
	Command string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("command %q rejected: %s", e.Command, e.Message)
}

// Output 一条命令的结果
type Output struct {
	// Lines 不含回显行与结束提示符行
	Lines []string
	// Prompt 命中的结束提示符
	Prompt prompt.Name
	// PromptText 结束提示符原文，如 "R1(config)#"
	PromptText string
}

// Executor 操作唯一可见的会话能力，操作不直接接触传输层
type Executor interface {
	// Run 发送命令并收集输出，直到 terminators 中任一提示符出现
	Run(ctx context.Context, command string, terminators ...prompt.Name) (Output, error)
}

// Operation 在已就绪（特权模式）的会话上执行的业务操作
type Operation interface {
	Kind() model.OperationKind
	// Validate 执行前检查凭据，例如修改口令需要 NewSecret
	Validate(creds model.Credentials) error
	Execute(ctx context.Context, exec Executor, creds model.Credentials) (model.Data, error)
}

// Plugin 平台插件，提供该平台支持的操作
type Plugin interface {
	// Name 插件名称（如：default、cisco_ios）
	Name() string
	// Operation 按类型获取操作实现
	Operation(kind model.OperationKind) (Operation, bool)
}

// DefaultPlugin 系统默认插件，不提供任何操作
type DefaultPlugin struct{}

func (p *DefaultPlugin) Name() string { return "default" }

func (p *DefaultPlugin) Operation(model.OperationKind) (Operation, bool) { return nil, false }

// Lookup 从平台插件中取操作，不支持时返回 ErrUnsupported
func Lookup(platform string, kind model.OperationKind) (Operation, error) {
	p := Get(platform)
	op, ok := p.Operation(kind)
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", kind, p.Name(), ErrUnsupported)
	}
	return op, nil
}
