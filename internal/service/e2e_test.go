package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/transport"
	"github.com/sshcollectorpro/drconf/simulate"
)

func startSimulator(t *testing.T, mutate func(*simulate.Config)) *simulate.Server {
	t.Helper()
	cfg := simulate.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := simulate.Start(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Stop)
	return srv
}

func simRunner() *BatchRunner {
	dialer := transport.NewDialer(transport.Options{ConnectTimeout: 3 * time.Second})
	return newRunner(dialer, SessionOptions{
		ExpectTimeout:     3 * time.Second,
		PasswordGrace:     time.Second,
		CommandTimeout:    5 * time.Second,
		DisablePagingCmds: []string{"terminal length 0"},
	})
}

func TestSimulatorHealthCheckOverBothProtocols(t *testing.T) {
	srv := startSimulator(t, nil)

	report, err := simRunner().Run(context.Background(),
		source(srv.TelnetAddr(), "# ssh entry", "ssh://"+srv.SSHAddr()), batchOptions(model.OpHealthCheck))
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		require.True(t, r.Succeeded(), "%s: %+v", r.Target, r.Failure)
		hc := r.Data.(*model.HealthCheckData)
		// 路由器回退到 show ip interface brief，两个 up/up 接口
		assert.Len(t, hc.Interfaces, 2)
		assert.Len(t, hc.ARP, 3)
	}
}

func TestSimulatorSystemAudit(t *testing.T) {
	srv := startSimulator(t, func(c *simulate.Config) { c.Device.Switch = true; c.Device.Hostname = "SW1" })

	report, err := simRunner().Run(context.Background(), source(srv.TelnetAddr()), batchOptions(model.OpSystemAudit))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	require.True(t, res.Succeeded(), "%+v", res.Failure)

	audit := res.Data.(*model.AuditData)
	assert.Equal(t, "SW1", audit.Hostname)
	assert.Contains(t, audit.Version, "15.2(4)M6")
	assert.Len(t, audit.Inventory, 2)
	assert.Empty(t, audit.Absent)
}

func TestSimulatorSecretChange(t *testing.T) {
	srv := startSimulator(t, nil)
	opts := batchOptions(model.OpSecretChange)
	opts.Credentials.NewSecret = "Rotated1"

	report, err := simRunner().Run(context.Background(), source("ssh://"+srv.SSHAddr()), opts)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.True(t, report.Results[0].Succeeded(), "%+v", report.Results[0].Failure)
	assert.Equal(t, "Rotated1", srv.Device().Secret())

	// 旧口令不再可用
	report, err = simRunner().Run(context.Background(), source(srv.TelnetAddr()), batchOptions(model.OpHealthCheck))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	f := report.Results[0].Failure
	require.NotNil(t, f)
	assert.Equal(t, model.StageEnable, f.Stage)
	assert.Equal(t, model.ReasonBadSecret, f.Reason)
}

func TestSimulatorBadPassword(t *testing.T) {
	srv := startSimulator(t, nil)
	opts := batchOptions(model.OpHealthCheck)
	opts.Credentials.Password = "wrong"

	report, err := simRunner().Run(context.Background(), source(srv.TelnetAddr(), "ssh://"+srv.SSHAddr()), opts)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		require.NotNil(t, r.Failure, r.Target)
		assert.Equal(t, model.StageLogin, r.Failure.Stage)
		assert.Equal(t, model.ReasonBadCredentials, r.Failure.Reason)
	}
}
