package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/util"
	"github.com/sshcollectorpro/drconf/pkg/logger"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

var _ operation.Executor = (*Session)(nil)

// Run 在就绪会话上执行一条命令，等待 terminators 中任一提示符（默认特权提示符）。
// 返回的行不含命令回显与结束提示符；超时返回 operation.ErrTimeout，已收到的部分输出丢弃
func (s *Session) Run(ctx context.Context, command string, terminators ...prompt.Name) (operation.Output, error) {
	if st := s.State(); st != StateReady {
		return operation.Output{}, fmt.Errorf("%w: %s", ErrSessionNotReady, st)
	}
	if err := ctx.Err(); err != nil {
		return operation.Output{}, err
	}
	if len(terminators) == 0 {
		terminators = []prompt.Name{prompt.PrivExec}
	}
	set, err := s.prompts.Select(terminators...)
	if err != nil {
		return operation.Output{}, err
	}

	shown := logger.Redact(command)
	if err := s.tr.Send(command); err != nil {
		return operation.Output{}, fmt.Errorf("%w: send %q: %v", operation.ErrTimeout, shown, err)
	}
	res := s.tr.ReadUntil(set, s.opts.CommandTimeout)
	if res.IsTimeout() {
		if err := ctx.Err(); err != nil {
			return operation.Output{}, err
		}
		s.log.Debugf("command %q timed out after %s", shown, s.opts.CommandTimeout)
		return operation.Output{}, fmt.Errorf("%w: %q", operation.ErrTimeout, shown)
	}

	lines := commandLines(res.Match.Prefix, command)
	logger.DebugCommandOutput(s.log, shown, lines, s.opts.OutputLines)
	return operation.Output{
		Lines:      lines,
		Prompt:     res.Match.Pattern,
		PromptText: strings.TrimSpace(res.Match.Text),
	}, nil
}

// commandLines 从结束提示符之前的原始输出中取命令结果：
// 去掉提示符所在行的残余部分，去掉首个非空的回显行（含水平滚动的截断回显），再去掉首尾空行
func commandLines(prefix, command string) []string {
	lines := util.SplitOutput(prefix)
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	echo := strings.TrimSpace(command)
	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if t == "" {
			continue
		}
		if echo != "" && (strings.HasSuffix(t, echo) || scrolledEcho(t, echo)) {
			lines = lines[i+1:]
		}
		break
	}
	return util.TrimBlank(lines)
}

// scrolledEcho 长命令在窄终端上水平滚动后的回显，如 R1#$ing-config | include hostname
func scrolledEcho(line, echo string) bool {
	i := strings.Index(line, "$")
	if i < 0 {
		return false
	}
	tail := strings.TrimSpace(line[i+1:])
	return tail != "" && strings.HasSuffix(echo, tail)
}
