package service

import (
	"context"
	"errors"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/internal/model"
)

// Dispatcher 按平台选择操作实现，并在就绪会话上执行
type Dispatcher struct {
	platform string
}

// NewDispatcher 创建分发器，platform 为空时使用默认插件
func NewDispatcher(platform string) *Dispatcher {
	return &Dispatcher{platform: platform}
}

// Operation 取平台的操作实现
func (d *Dispatcher) Operation(kind model.OperationKind) (operation.Operation, error) {
	return operation.Lookup(d.platform, kind)
}

// Prepare 取操作实现并校验凭据，在连接设备之前调用
func (d *Dispatcher) Prepare(kind model.OperationKind, creds model.Credentials) (operation.Operation, error) {
	op, err := d.Operation(kind)
	if err != nil {
		return nil, err
	}
	if err := op.Validate(creds); err != nil {
		return nil, err
	}
	return op, nil
}

// Dispatch 在会话上执行操作，无论成败都会关闭会话。失败时返回 *model.Failure
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, op operation.Operation, creds model.Credentials) (model.Data, error) {
	defer sess.Close()

	data, err := op.Execute(ctx, sess, creds)
	if err != nil {
		return nil, operationFailure(ctx, sess.Target(), err)
	}
	sess.log.Debugf("%s completed", op.Kind())
	return data, nil
}

func operationFailure(ctx context.Context, target model.Target, err error) *model.Failure {
	f := &model.Failure{Target: target.Addr, Stage: model.StageOperation, Detail: err.Error()}
	var re *operation.RejectedError
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		f.Reason = model.ReasonCancelled
	case errors.Is(err, operation.ErrTimeout), errors.Is(err, ErrSessionNotReady):
		f.Reason = model.ReasonTimeout
	case errors.As(err, &re):
		f.Reason = model.ReasonRejected
	default:
		f.Reason = model.ReasonRejected
	}
	return f
}
