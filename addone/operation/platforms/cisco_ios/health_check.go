package cisco_ios

import (
	"context"
	"strings"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

// HealthCheck 已连接接口与 ARP 表
type HealthCheck struct{}

func (h *HealthCheck) Kind() model.OperationKind { return model.OpHealthCheck }

func (h *HealthCheck) Validate(model.Credentials) error { return nil }

func (h *HealthCheck) Execute(ctx context.Context, exec operation.Executor, _ model.Credentials) (model.Data, error) {
	ifaces, err := connectedInterfaces(ctx, exec)
	if err != nil {
		return nil, err
	}

	out, err := exec.Run(ctx, "show arp", prompt.PrivExec)
	if err != nil {
		return nil, err
	}
	if err := rejected("show arp", out); err != nil {
		return nil, err
	}
	return &model.HealthCheckData{Interfaces: ifaces, ARP: nonEmpty(out.Lines)}, nil
}

// connectedInterfaces 交换机使用 show interfaces status；路由器不支持时改用 show ip interface brief
func connectedInterfaces(ctx context.Context, exec operation.Executor) ([]string, error) {
	const statusCmd = "show interfaces status | include connected"
	out, err := exec.Run(ctx, statusCmd, prompt.PrivExec)
	if err != nil {
		return nil, err
	}
	if rejected(statusCmd, out) == nil {
		return filterConnected(out.Lines), nil
	}

	const briefCmd = "show ip interface brief"
	out, err = exec.Run(ctx, briefCmd, prompt.PrivExec)
	if err != nil {
		return nil, err
	}
	if err := rejected(briefCmd, out); err != nil {
		return nil, err
	}
	return filterUpUp(out.Lines), nil
}

// filterConnected 保留状态列为 connected 的行（排除 notconnect）
func filterConnected(lines []string) []string {
	var out []string
	for _, ln := range lines {
		for _, f := range strings.Fields(ln) {
			if strings.EqualFold(f, "connected") {
				out = append(out, ln)
				break
			}
		}
	}
	return out
}

// filterUpUp 保留 Status 与 Protocol 均为 up 的接口行
func filterUpUp(lines []string) []string {
	var out []string
	for _, ln := range lines {
		f := strings.Fields(ln)
		if len(f) < 2 || strings.EqualFold(f[0], "Interface") {
			continue
		}
		if strings.EqualFold(f[len(f)-1], "up") && strings.EqualFold(f[len(f)-2], "up") {
			out = append(out, ln)
		}
	}
	return out
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}
