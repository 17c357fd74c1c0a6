package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/logger"
	"github.com/sshcollectorpro/drconf/pkg/transport"
)

// Mode 批量执行模式
type Mode string

const (
	// ModeAutomated 所有设备共用一组凭据
	ModeAutomated Mode = "automated"
	// ModeManual 逐台询问是否处理并输入凭据
	ModeManual Mode = "manual"
)

// ParseMode 解析模式，"m" 为手动，其他（含空）为自动
func ParseMode(s string) Mode {
	switch s {
	case "m", "M", "manual":
		return ModeManual
	default:
		return ModeAutomated
	}
}

// Decision 手动模式下操作员对单台设备的选择
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionSkip
	DecisionCancel
)

// Prompter 手动模式的操作员交互
type Prompter interface {
	// Decide 询问是否处理该设备
	Decide(ctx context.Context, target model.Target) (Decision, error)
	// Credentials 输入该设备的凭据，修改口令操作同时输入新口令
	Credentials(ctx context.Context, target model.Target, kind model.OperationKind) (model.Credentials, error)
}

// BatchOptions 一次批量执行的参数
type BatchOptions struct {
	Kind model.OperationKind
	Mode Mode
	// Credentials 自动模式的共用凭据
	Credentials model.Credentials
	// Workers 自动模式的并发数，手动模式始终串行
	Workers int
	// Protocol 清单行未写协议时使用
	Protocol transport.Protocol
	// Ports 各协议的默认端口
	Ports map[transport.Protocol]int
	// Prompter 手动模式必需
	Prompter Prompter
	// OnResult 每完成一台设备回调一次，可为空
	OnResult func(model.OperationResult)
}

// BatchRunner 逐台执行操作并汇总报告。单台失败只记录，不影响其他设备
type BatchRunner struct {
	auth *Authenticator
	disp *Dispatcher
}

// NewBatchRunner 创建批量执行器
func NewBatchRunner(auth *Authenticator, disp *Dispatcher) *BatchRunner {
	return &BatchRunner{auth: auth, disp: disp}
}

// Run 执行批量操作。返回的 error 只表示无法开始（清单不可读、操作不支持、共用凭据无效）；
// 中断时报告带 Cancelled 标记，已完成设备的结果保留
func (b *BatchRunner) Run(ctx context.Context, src TargetSource, opts BatchOptions) (*model.BatchReport, error) {
	if opts.Mode == "" {
		opts.Mode = ModeAutomated
	}
	if opts.Mode == ModeManual && opts.Prompter == nil {
		return nil, errors.New("manual mode requires a prompter")
	}

	var op operation.Operation
	var err error
	if opts.Mode == ModeAutomated {
		op, err = b.disp.Prepare(opts.Kind, opts.Credentials)
	} else {
		op, err = b.disp.Operation(opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	lines, err := readTargets(src)
	if err != nil {
		return nil, err
	}

	report := &model.BatchReport{Operation: opts.Kind, Mode: string(opts.Mode), StartTime: time.Now()}
	logger.Infof("%s started: %d targets, mode %s", opts.Kind.Title(), len(lines), opts.Mode)

	switch {
	case opts.Mode == ModeManual:
		b.runManual(ctx, lines, op, opts, report)
	case opts.Workers > 1:
		b.runParallel(ctx, lines, op, opts, report)
	default:
		b.runSequential(ctx, lines, op, opts, report)
	}

	if ctx.Err() != nil {
		report.Cancelled = true
	}
	report.EndTime = time.Now()
	ok, failed := report.Counts()
	logger.Infof("%s finished: %d succeeded, %d failed, %d skipped, cancelled=%v",
		opts.Kind.Title(), ok, failed, report.Skipped, report.Cancelled)
	return report, nil
}

func (b *BatchRunner) runSequential(ctx context.Context, lines []targetLine, op operation.Operation, opts BatchOptions, report *model.BatchReport) {
	for _, ln := range lines {
		if ctx.Err() != nil {
			return
		}
		res := b.process(ctx, ln, op, opts)
		report.Results = append(report.Results, res)
		notify(opts, res)
	}
}

// runParallel 每个 worker 独占自己的连接；结果按清单顺序写回
func (b *BatchRunner) runParallel(ctx context.Context, lines []targetLine, op operation.Operation, opts BatchOptions, report *model.BatchReport) {
	var (
		mu      sync.Mutex
		results = make([]*model.OperationResult, len(lines))
		g       errgroup.Group
	)
	g.SetLimit(opts.Workers)
	for i, ln := range lines {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := b.process(ctx, ln, op, opts)
			mu.Lock()
			results[i] = &res
			notify(opts, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			report.Results = append(report.Results, *r)
		}
	}
}

func (b *BatchRunner) runManual(ctx context.Context, lines []targetLine, op operation.Operation, opts BatchOptions, report *model.BatchReport) {
	for _, ln := range lines {
		if ctx.Err() != nil {
			return
		}
		target, parseErr := ln.target(opts)

		decision, err := opts.Prompter.Decide(ctx, target)
		if err != nil {
			logger.Warnf("prompt aborted at %s: %v", target.Addr, err)
			report.Cancelled = true
			return
		}
		switch decision {
		case DecisionSkip:
			report.Skipped++
			logger.ForTarget(target.Addr).Info("skipped by operator")
			continue
		case DecisionCancel:
			report.Cancelled = true
			return
		}

		creds, err := opts.Prompter.Credentials(ctx, target, opts.Kind)
		if err != nil {
			logger.Warnf("prompt aborted at %s: %v", target.Addr, err)
			report.Cancelled = true
			return
		}
		var res model.OperationResult
		if parseErr != nil {
			res = invalidTarget(target, opts.Kind, parseErr, time.Now())
		} else {
			res = b.processTarget(ctx, target.WithCredentials(creds), op, opts)
		}
		report.Results = append(report.Results, res)
		notify(opts, res)
	}
}

// target 解析清单行；失败时返回只带原始地址与行号的 Target
func (ln targetLine) target(opts BatchOptions) (model.Target, error) {
	t, err := model.ParseTarget(ln.raw, opts.Protocol, opts.Ports)
	if err != nil {
		return model.Target{Addr: ln.raw, Line: ln.no}, err
	}
	t.Line = ln.no
	return t, nil
}

func invalidTarget(target model.Target, kind model.OperationKind, err error, start time.Time) model.OperationResult {
	return model.NewFailure(target, kind, &model.Failure{
		Stage: model.StageConnect, Reason: model.ReasonInvalidTarget, Detail: err.Error(),
	}, start)
}

// process 处理一行清单，结果总是一条 OperationResult
func (b *BatchRunner) process(ctx context.Context, ln targetLine, op operation.Operation, opts BatchOptions) model.OperationResult {
	target, err := ln.target(opts)
	if err != nil {
		return invalidTarget(target, opts.Kind, err, time.Now())
	}
	return b.processTarget(ctx, target, op, opts)
}

// processTarget 认证并执行操作。Target 带单设备凭据时优先使用，否则使用批量凭据
func (b *BatchRunner) processTarget(ctx context.Context, target model.Target, op operation.Operation, opts BatchOptions) model.OperationResult {
	start := time.Now()
	creds := opts.Credentials
	if target.Credentials != nil {
		creds = *target.Credentials
	}
	log := logger.ForTarget(target.Addr)

	if err := op.Validate(creds); err != nil {
		return model.NewFailure(target, opts.Kind, &model.Failure{
			Stage: model.StageOperation, Reason: model.ReasonRejected, Detail: err.Error(),
		}, start)
	}

	sess, err := b.auth.Login(ctx, target, creds)
	if err != nil {
		log.Warnf("authentication failed: %v", err)
		return model.NewFailure(target, opts.Kind, asFailure(target, err), start)
	}

	data, err := b.disp.Dispatch(ctx, sess, op, creds)
	if err != nil {
		log.Warnf("%s failed: %v", opts.Kind, err)
		return model.NewFailure(target, opts.Kind, asFailure(target, err), start)
	}
	log.Infof("%s succeeded", opts.Kind)
	return model.NewSuccess(target, opts.Kind, data, start)
}

func asFailure(target model.Target, err error) *model.Failure {
	var f *model.Failure
	if errors.As(err, &f) {
		return f
	}
	return &model.Failure{Target: target.Addr, Stage: model.StageOperation, Reason: model.ReasonRejected, Detail: fmt.Sprint(err)}
}

func notify(opts BatchOptions, res model.OperationResult) {
	if opts.OnResult != nil {
		opts.OnResult(res)
	}
}
