package cisco_ios

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

type reply struct {
	out operation.Output
	err error
}

// scriptExec 按命令返回预置结果，并记录调用顺序
type scriptExec struct {
	replies map[string]reply
	calls   []string
	terms   [][]prompt.Name
}

func (s *scriptExec) Run(_ context.Context, command string, terminators ...prompt.Name) (operation.Output, error) {
	s.calls = append(s.calls, command)
	s.terms = append(s.terms, terminators)
	r, ok := s.replies[command]
	if !ok {
		return operation.Output{Lines: []string{"% Invalid input detected at '^' marker."}, Prompt: prompt.PrivExec, PromptText: "R1#"}, nil
	}
	return r.out, r.err
}

func priv(lines ...string) reply {
	return reply{out: operation.Output{Lines: lines, Prompt: prompt.PrivExec, PromptText: "R1#"}}
}

func cfg(lines ...string) reply {
	return reply{out: operation.Output{Lines: lines, Prompt: prompt.ConfigPrompt, PromptText: "R1(config)#"}}
}

func TestRegisteredInRegistry(t *testing.T) {
	for _, k := range []model.OperationKind{model.OpSecretChange, model.OpHealthCheck, model.OpSystemAudit} {
		op, err := operation.Lookup("cisco_ios", k)
		require.NoError(t, err)
		assert.Equal(t, k, op.Kind())
	}
	_, err := operation.Lookup("nonexistent", model.OpHealthCheck)
	assert.ErrorIs(t, err, operation.ErrUnsupported)
}

func TestSecretChangeSequence(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"configure terminal":   cfg("Enter configuration commands, one per line.  End with CNTL/Z."),
		"enable secret n3wS3c": cfg(),
		"end":                  priv(),
	}}
	data, err := (&SecretChange{}).Execute(context.Background(), ex, model.Credentials{NewSecret: "n3wS3c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"configure terminal", "enable secret n3wS3c", "end"}, ex.calls)
	assert.Equal(t, []prompt.Name{prompt.ConfigPrompt}, ex.terms[0])
	assert.Equal(t, []prompt.Name{prompt.PrivExec}, ex.terms[2])
	sc, ok := data.(*model.SecretChangeData)
	require.True(t, ok)
	assert.Equal(t, "R1#", sc.Prompt)
}

func TestSecretChangeRejected(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"configure terminal": cfg(),
		"enable secret abc":  cfg("% Incomplete command."),
	}}
	_, err := (&SecretChange{}).Execute(context.Background(), ex, model.Credentials{NewSecret: "abc"})
	var re *operation.RejectedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "enable secret", re.Command)
	assert.NotContains(t, err.Error(), "abc")
}

func TestSecretChangeTimeoutPropagates(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"configure terminal": {err: operation.ErrTimeout},
	}}
	_, err := (&SecretChange{}).Execute(context.Background(), ex, model.Credentials{NewSecret: "abc"})
	assert.ErrorIs(t, err, operation.ErrTimeout)
	assert.Len(t, ex.calls, 1)
}

func TestSecretChangeValidate(t *testing.T) {
	s := &SecretChange{}
	assert.Error(t, s.Validate(model.Credentials{}))
	assert.Error(t, s.Validate(model.Credentials{NewSecret: "two words"}))
	assert.Error(t, s.Validate(model.Credentials{NewSecret: "what?"}))
	assert.NoError(t, s.Validate(model.Credentials{NewSecret: "Str0ng!"}))
}

func TestHealthCheckSections(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"show interfaces status | include connected": priv(
			"Gi0/1     uplink             connected    1            a-full a-1000 10/100/1000BaseTX",
			"Gi0/3                        notconnect   1              auto   auto 10/100/1000BaseTX",
		),
		"show arp": priv(
			"Protocol  Address          Age (min)  Hardware Addr   Type   Interface",
			"Internet  10.0.0.1                -   0011.2233.4455  ARPA   Vlan1",
			"",
		),
	}}
	data, err := (&HealthCheck{}).Execute(context.Background(), ex, model.Credentials{})
	require.NoError(t, err)
	hc := data.(*model.HealthCheckData)
	require.Len(t, hc.Interfaces, 1)
	assert.Contains(t, hc.Interfaces[0], "Gi0/1")
	assert.Len(t, hc.ARP, 2)

	secs := hc.Sections()
	require.Len(t, secs, 2)
	assert.Equal(t, "connected interfaces", secs[0].Name)
	assert.Equal(t, "arp", secs[1].Name)
}

func TestHealthCheckFallsBackOnRouters(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"show ip interface brief": priv(
			"Interface              IP-Address      OK? Method Status                Protocol",
			"GigabitEthernet0/0     10.0.0.2        YES NVRAM  up                    up",
			"GigabitEthernet0/1     unassigned      YES NVRAM  administratively down down",
		),
		"show arp": priv("Internet  10.0.0.1  -  0011.2233.4455  ARPA  GigabitEthernet0/0"),
	}}
	data, err := (&HealthCheck{}).Execute(context.Background(), ex, model.Credentials{})
	require.NoError(t, err)
	hc := data.(*model.HealthCheckData)
	require.Len(t, hc.Interfaces, 1)
	assert.Contains(t, hc.Interfaces[0], "GigabitEthernet0/0")
	assert.Equal(t, []string{"show interfaces status | include connected", "show ip interface brief", "show arp"}, ex.calls)
}

func TestSystemAuditParses(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"show run | include hostname": priv("hostname R1"),
		"show version": priv(
			"",
			"Cisco IOS Software, C2900 Software (C2900-UNIVERSALK9-M), Version 15.2(4)M6, RELEASE SOFTWARE (fc2)",
			"Technical Support: http://www.cisco.com/techsupport",
		),
		"show inventory": priv(
			`NAME: "CISCO2911/K9 chassis", DESCR: "CISCO2911/K9 chassis, Hw Serial#: FTX1, Hw Revision: 1.0"`,
			`PID: CISCO2911/K9      , VID: V06 , SN: FTX1234ABCD`,
		),
	}}
	data, err := (&SystemAudit{}).Execute(context.Background(), ex, model.Credentials{})
	require.NoError(t, err)
	ad := data.(*model.AuditData)
	assert.Equal(t, "R1", ad.Hostname)
	assert.Contains(t, ad.Version, "Version 15.2(4)M6")
	require.Len(t, ad.Inventory, 1)
	assert.Contains(t, ad.Inventory[0], "pid=CISCO2911/K9")
	assert.Contains(t, ad.Inventory[0], "sn=FTX1234ABCD")
	assert.Empty(t, ad.Absent)
}

func TestSystemAuditMissingFieldsAreAbsent(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"show run | include hostname": priv(),
		"show version":                priv("Cisco IOS Software, Version 12.4(24)T"),
		// show inventory 未配置，返回 % Invalid input
	}}
	data, err := (&SystemAudit{}).Execute(context.Background(), ex, model.Credentials{})
	require.NoError(t, err)
	ad := data.(*model.AuditData)
	assert.Equal(t, []string{"hostname", "inventory"}, ad.Absent)
	assert.NotEmpty(t, ad.Version)
	assert.Len(t, ex.calls, 3)
}

func TestSystemAuditTimeoutFails(t *testing.T) {
	ex := &scriptExec{replies: map[string]reply{
		"show run | include hostname": priv("hostname R1"),
		"show version":                {err: operation.ErrTimeout},
	}}
	_, err := (&SystemAudit{}).Execute(context.Background(), ex, model.Credentials{})
	assert.ErrorIs(t, err, operation.ErrTimeout)
}
