package model

import (
	"fmt"
	"time"
)

// OperationKind 操作类型
type OperationKind string

const (
	OpSecretChange OperationKind = "secret_change"
	OpHealthCheck  OperationKind = "health_check"
	OpSystemAudit  OperationKind = "system_audit"
)

// Title 菜单展示名
func (k OperationKind) Title() string {
	switch k {
	case OpSecretChange:
		return "Secret Change"
	case OpHealthCheck:
		return "Health Check"
	case OpSystemAudit:
		return "System Audit"
	default:
		return string(k)
	}
}

// ParseOperationKind 解析操作名，兼容 secret-change / secretchange 等写法
func ParseOperationKind(s string) (OperationKind, error) {
	switch normalizeKind(s) {
	case "secretchange", "secret":
		return OpSecretChange, nil
	case "healthcheck", "health":
		return OpHealthCheck, nil
	case "systemaudit", "audit":
		return OpSystemAudit, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

func normalizeKind(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c >= 'a' && c <= 'z':
			out = append(out, c)
		}
	}
	return string(out)
}

// Status 结果状态
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Stage 失败发生的阶段
type Stage string

const (
	StageConnect   Stage = "connect"
	StageLogin     Stage = "login"
	StageEnable    Stage = "enable"
	StageOperation Stage = "operation"
)

// Reason 失败原因
type Reason string

const (
	ReasonUnreachable     Reason = "unreachable"
	ReasonHandshakeFailed Reason = "handshake_failed"
	ReasonBadCredentials  Reason = "bad_credentials"
	ReasonBadSecret       Reason = "bad_secret"
	ReasonTimeout         Reason = "timeout"
	ReasonRejected        Reason = "rejected"
	ReasonCancelled       Reason = "cancelled"
	ReasonInvalidTarget   Reason = "invalid_target"
)

// Failure 单个目标的失败，不会影响其他目标
type Failure struct {
	Target string `json:"target"`
	Stage  Stage  `json:"stage"`
	Reason Reason `json:"reason"`
	// Detail 底层错误描述，已脱敏
	Detail string `json:"detail,omitempty"`
}

func (f *Failure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s failed (%s): %s", f.Target, f.Stage, f.Reason, f.Detail)
	}
	return fmt.Sprintf("%s: %s failed (%s)", f.Target, f.Stage, f.Reason)
}

// Section 命名的输出段
type Section struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// Data 成功结果的数据，按段输出
type Data interface {
	Sections() []Section
}

// SecretChangeData 修改 enable secret 的确认信息
type SecretChangeData struct {
	// Prompt 修改完成后回到的特权提示符
	Prompt string   `json:"prompt"`
	Output []string `json:"output,omitempty"`
}

func (d *SecretChangeData) Sections() []Section {
	return []Section{{Name: "confirmation", Lines: []string{"enable secret updated, back at " + d.Prompt}}}
}

// HealthCheckData 接口与 ARP 状态
type HealthCheckData struct {
	Interfaces []string `json:"interfaces"`
	ARP        []string `json:"arp"`
}

func (d *HealthCheckData) Sections() []Section {
	return []Section{
		{Name: "connected interfaces", Lines: d.Interfaces},
		{Name: "arp", Lines: d.ARP},
	}
}

// AuditData 主机名、版本与硬件清单；缺失字段记录在 Absent 中
type AuditData struct {
	Hostname  string   `json:"hostname,omitempty"`
	Version   string   `json:"version,omitempty"`
	Inventory []string `json:"inventory,omitempty"`
	Absent    []string `json:"absent,omitempty"`
}

func (d *AuditData) Sections() []Section {
	var out []Section
	if d.Hostname != "" {
		out = append(out, Section{Name: "hostname", Lines: []string{d.Hostname}})
	}
	if d.Version != "" {
		out = append(out, Section{Name: "version", Lines: []string{d.Version}})
	}
	if len(d.Inventory) > 0 {
		out = append(out, Section{Name: "inventory", Lines: d.Inventory})
	}
	if len(d.Absent) > 0 {
		out = append(out, Section{Name: "absent", Lines: d.Absent})
	}
	return out
}

// OperationResult 单个目标的处理结果，创建后不再修改
type OperationResult struct {
	Target    string        `json:"target"`
	Line      int           `json:"line"`
	Operation OperationKind `json:"operation"`
	Status    string        `json:"status"`
	Data      Data          `json:"data,omitempty"`
	Failure   *Failure      `json:"failure,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  int64         `json:"duration"` // 毫秒
}

// Succeeded 是否成功
func (r OperationResult) Succeeded() bool { return r.Status == StatusSuccess }

// NewSuccess 构造成功结果
func NewSuccess(target Target, op OperationKind, data Data, start time.Time) OperationResult {
	end := time.Now()
	return OperationResult{
		Target:    target.Addr,
		Line:      target.Line,
		Operation: op,
		Status:    StatusSuccess,
		Data:      data,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start).Milliseconds(),
	}
}

// NewFailure 构造失败结果
func NewFailure(target Target, op OperationKind, f *Failure, start time.Time) OperationResult {
	end := time.Now()
	if f.Target == "" {
		f.Target = target.Addr
	}
	return OperationResult{
		Target:    target.Addr,
		Line:      target.Line,
		Operation: op,
		Status:    StatusFailed,
		Failure:   f,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start).Milliseconds(),
	}
}

// BatchReport 批量执行报告，每个已处理目标一条，跳过的目标不计入
type BatchReport struct {
	Operation OperationKind     `json:"operation"`
	Mode      string            `json:"mode"`
	Results   []OperationResult `json:"results"`
	Skipped   int               `json:"skipped"`
	// Cancelled 被中断时为 true，Results 仍包含已完成的目标
	Cancelled bool      `json:"cancelled"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Counts 成功与失败数量
func (r *BatchReport) Counts() (succeeded, failed int) {
	for _, res := range r.Results {
		if res.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
