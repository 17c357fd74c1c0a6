package cisco_ios

import (
	"strings"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
)

// Plugin 为 cisco_ios 平台操作插件
type Plugin struct {
	ops map[model.OperationKind]operation.Operation
}

// New 创建插件，注册三类操作
func New() *Plugin {
	return &Plugin{ops: map[model.OperationKind]operation.Operation{
		model.OpSecretChange: &SecretChange{},
		model.OpHealthCheck:  &HealthCheck{},
		model.OpSystemAudit:  &SystemAudit{},
	}}
}

func (p *Plugin) Name() string { return "cisco_ios" }

func (p *Plugin) Operation(kind model.OperationKind) (operation.Operation, bool) {
	op, ok := p.ops[kind]
	return op, ok
}

// IOS 的命令错误提示，"%" 开头
var rejectHints = []string{
	"% invalid input",
	"% incomplete command",
	"% ambiguous command",
	"% unknown command",
}

// rejected 在输出中查找命令被拒绝的提示
func rejected(command string, out operation.Output) error {
	for _, ln := range out.Lines {
		l := strings.ToLower(strings.TrimSpace(ln))
		for _, h := range rejectHints {
			if strings.HasPrefix(l, h) {
				return &operation.RejectedError{Command: command, Message: strings.TrimSpace(ln)}
			}
		}
	}
	return nil
}

func init() {
	operation.Register("cisco_ios", New())
}
