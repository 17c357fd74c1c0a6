package cisco_ios

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

// SystemAudit 主机名、版本与硬件清单。
// 单项取不到只记为缺失；命令超时会让会话状态不可预期，按操作失败处理
type SystemAudit struct{}

func (a *SystemAudit) Kind() model.OperationKind { return model.OpSystemAudit }

func (a *SystemAudit) Validate(model.Credentials) error { return nil }

func (a *SystemAudit) Execute(ctx context.Context, exec operation.Executor, _ model.Credentials) (model.Data, error) {
	data := &model.AuditData{}

	steps := []struct {
		field   string
		command string
		apply   func(lines []string) bool
	}{
		{"hostname", "show run | include hostname", func(lines []string) bool {
			data.Hostname = parseHostname(lines)
			return data.Hostname != ""
		}},
		{"version", "show version", func(lines []string) bool {
			data.Version = parseVersion(lines)
			return data.Version != ""
		}},
		{"inventory", "show inventory", func(lines []string) bool {
			data.Inventory = parseInventory(lines)
			return len(data.Inventory) > 0
		}},
	}

	for _, st := range steps {
		out, err := exec.Run(ctx, st.command, prompt.PrivExec)
		if err != nil {
			var re *operation.RejectedError
			if errors.As(err, &re) {
				data.Absent = append(data.Absent, st.field)
				continue
			}
			return nil, fmt.Errorf("%s: %w", st.field, err)
		}
		if rejected(st.command, out) != nil || !st.apply(out.Lines) {
			data.Absent = append(data.Absent, st.field)
		}
	}
	return data, nil
}

// parseHostname 取 "hostname X" 行的主机名
func parseHostname(lines []string) string {
	for _, ln := range lines {
		f := strings.Fields(ln)
		if len(f) == 2 && strings.EqualFold(f[0], "hostname") {
			return f[1]
		}
	}
	return ""
}

// parseVersion 优先取含 "Version" 的软件标识行，否则取首个非空行
func parseVersion(lines []string) string {
	first := ""
	for _, ln := range lines {
		s := strings.TrimSpace(ln)
		if s == "" {
			continue
		}
		if first == "" {
			first = s
		}
		if strings.Contains(s, "Version") && (strings.Contains(s, "IOS") || strings.Contains(s, "Software")) {
			return s
		}
	}
	return first
}

// parseInventory 合并 NAME/DESCR 与 PID/VID/SN 两行为一条记录
func parseInventory(lines []string) []string {
	var (
		out  []string
		name string
	)
	for _, ln := range lines {
		s := strings.TrimSpace(ln)
		switch {
		case strings.HasPrefix(s, "NAME:"):
			fields := inventoryFields(s)
			name = fields["NAME"]
			if d := fields["DESCR"]; d != "" {
				name = fmt.Sprintf("%s (%s)", name, d)
			}
		case strings.HasPrefix(s, "PID:"):
			fields := inventoryFields(s)
			entry := fmt.Sprintf("%s pid=%s sn=%s", name, fields["PID"], fields["SN"])
			out = append(out, strings.TrimSpace(entry))
			name = ""
		}
	}
	return out
}

// 取值可能带引号且包含逗号，如 DESCR: "Cisco 2911 Chassis, 3 GE"
var inventoryKV = regexp.MustCompile(`([A-Z]+):\s*("[^"]*"|[^,\s]*)`)

// inventoryFields 解析 `NAME: "x", DESCR: "y"` 形式的键值对
func inventoryFields(s string) map[string]string {
	out := map[string]string{}
	for _, m := range inventoryKV.FindAllStringSubmatch(s, -1) {
		out[m[1]] = strings.Trim(m[2], `"`)
	}
	return out
}
