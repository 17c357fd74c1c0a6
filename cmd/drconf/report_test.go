package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sshcollectorpro/drconf/internal/model"
)

func TestPrintReport(t *testing.T) {
	start := time.Now()
	r1 := model.Target{Addr: "10.0.0.1", Line: 1}
	r2 := model.Target{Addr: "10.0.0.2", Line: 3}
	report := &model.BatchReport{
		Operation: model.OpHealthCheck,
		Mode:      "automated",
		Results: []model.OperationResult{
			model.NewSuccess(r1, model.OpHealthCheck, &model.HealthCheckData{
				Interfaces: []string{"Gi0/1     uplink   connected    trunk"},
			}, start),
			model.NewFailure(r2, model.OpHealthCheck, &model.Failure{
				Stage: model.StageLogin, Reason: model.ReasonBadCredentials, Detail: "no exec prompt",
			}, start),
		},
		Skipped:   1,
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Health Check report (automated mode)")
	assert.Regexp(t, `1\s+10\.0\.0\.1\s+success\s+-\s+-`, out)
	assert.Regexp(t, `3\s+10\.0\.0\.2\s+failed\s+login\s+bad_credentials`, out)
	assert.Contains(t, out, "[connected interfaces]\n  Gi0/1")
	assert.Contains(t, out, "[arp]\n  (none)")
	assert.Contains(t, out, "no exec prompt")
	assert.Contains(t, out, "1 succeeded, 1 failed, 1 skipped in 2s")
	assert.NotContains(t, out, "cancelled")
}

func TestPrintReportCancelled(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	printReport(&buf, &model.BatchReport{Operation: model.OpSystemAudit, Mode: "manual", Cancelled: true, StartTime: now, EndTime: now})
	assert.Contains(t, buf.String(), "0 succeeded, 0 failed, 0 skipped, cancelled")
}
