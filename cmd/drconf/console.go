package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/internal/service"
)

// errQuit 菜单选择退出或输入结束，进程以 0 退出
var errQuit = errors.New("quit")

var menuItems = []model.OperationKind{model.OpSecretChange, model.OpHealthCheck, model.OpSystemAudit}

// console 基于 readline 的操作员界面，同时实现手动模式的 service.Prompter
type console struct {
	rl  *readline.Instance
	out io.Writer
	// interrupted 读取时收到 Ctrl-C
	interrupted bool
	closeOnce   sync.Once
}

var _ service.Prompter = (*console)(nil)

func newConsole(out io.Writer) (*console, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("interactive mode needs a terminal, use --op for scripted runs")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "drconf> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init console: %w", err)
	}
	return &console{rl: rl, out: out}, nil
}

// Close 可重复调用
func (c *console) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.rl.Close() })
	return err
}

// readErr Ctrl-C 转为 errInterrupted，Ctrl-D 转为 errQuit
func (c *console) readErr(err error) error {
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		c.interrupted = true
		return errInterrupted
	case errors.Is(err, io.EOF):
		return errQuit
	}
	return err
}

func (c *console) ask(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	line, err := c.rl.Readline()
	if err != nil {
		return "", c.readErr(err)
	}
	return strings.TrimSpace(line), nil
}

// askSecret 不回显输入
func (c *console) askSecret(prompt string) (string, error) {
	b, err := c.rl.ReadPassword(prompt)
	if err != nil {
		return "", c.readErr(err)
	}
	return string(b), nil
}

// menu 返回选择的操作；选择退出或 Ctrl-D 时返回 errQuit
func (c *console) menu() (model.OperationKind, error) {
	for {
		fmt.Fprintln(c.out, "drconf - Cisco IOS batch configuration")
		for i, k := range menuItems {
			fmt.Fprintf(c.out, "  %d) %s\n", i+1, k.Title())
		}
		fmt.Fprintf(c.out, "  %d) Quit\n", len(menuItems)+1)

		choice, err := c.ask("Select an option: ")
		if err != nil {
			return "", err
		}
		switch strings.ToLower(choice) {
		case "1", "2", "3":
			return menuItems[choice[0]-'1'], nil
		case "4", "q", "quit", "exit":
			return "", errQuit
		}
		fmt.Fprintf(c.out, "Invalid option %q\n\n", choice)
	}
}

// mode 回车取默认值，m 为手动
func (c *console) mode(def service.Mode) (service.Mode, error) {
	answer, err := c.ask(fmt.Sprintf("Mode (enter for %s, m for manual, a for automated): ", def))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "a", "automated":
		return service.ModeAutomated, nil
	}
	return service.ParseMode(answer), nil
}

// credentials 读取用户名、密码与 enable secret；修改口令时再读取并确认新口令
func (c *console) credentials(kind model.OperationKind) (model.Credentials, error) {
	var creds model.Credentials
	var err error
	if creds.Username, err = c.ask("Username: "); err != nil {
		return creds, err
	}
	if creds.Password, err = c.askSecret("Password: "); err != nil {
		return creds, err
	}
	if creds.Secret, err = c.askSecret("Enable secret: "); err != nil {
		return creds, err
	}
	if kind != model.OpSecretChange {
		return creds, nil
	}
	creds.NewSecret, _, err = service.ConfirmNewSecret(c.askSecret, func(err error) {
		fmt.Fprintf(c.out, "%v, try again\n", err)
	})
	return creds, err
}

// Decide 手动模式逐台确认
func (c *console) Decide(ctx context.Context, target model.Target) (service.Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return service.DecisionCancel, err
		}
		answer, err := c.ask(fmt.Sprintf("Router %s (line %d): [c]ontinue, [s]kip, [q]uit? ", target.Addr, target.Line))
		if err != nil {
			return service.DecisionCancel, err
		}
		switch strings.ToLower(answer) {
		case "", "c", "continue", "y", "yes":
			return service.DecisionContinue, nil
		case "s", "skip", "n", "no":
			return service.DecisionSkip, nil
		case "q", "quit":
			return service.DecisionCancel, nil
		}
	}
}

// Credentials 手动模式下每台设备单独输入
func (c *console) Credentials(ctx context.Context, target model.Target, kind model.OperationKind) (model.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return model.Credentials{}, err
	}
	fmt.Fprintf(c.out, "Credentials for %s\n", target.Addr)
	return c.credentials(kind)
}

// progress 每台设备完成时输出一行
func (c *console) progress(r model.OperationResult) {
	if r.Succeeded() {
		fmt.Fprintf(c.out, "  [ ok ] %s\n", r.Target)
		return
	}
	fmt.Fprintf(c.out, "  [fail] %s: %s/%s\n", r.Target, r.Failure.Stage, r.Failure.Reason)
}
