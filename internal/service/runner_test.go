package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/drconf/addone/operation"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

func TestCommandLines(t *testing.T) {
	cases := []struct {
		name    string
		prefix  string
		command string
		want    []string
	}{
		{"echo and prompt line removed", "show arp\r\nline 1\r\nline 2\r\n", "show arp", []string{"line 1", "line 2"}},
		{"no echo", "\r\nline 1\r\n", "show arp", []string{"line 1"}},
		{"no output", "end\r\n", "end", []string{}},
		{"echo after leftover prompt text", "R1#show clock\r\n*10:00:00 UTC\r\n", "show clock", []string{"*10:00:00 UTC"}},
		{"partial prompt line dropped", "show x\r\nvalue\r\nR1", "show x", []string{"value"}},
		{"ansi and blank edges", "show y\r\n\r\n\x1b[0Kresult\r\n\r\n", "show y", []string{"result"}},
		{"only first echo removed", "show run | include hostname\r\nhostname show run | include hostname\r\n", "show run | include hostname",
			[]string{"hostname show run | include hostname"}},
		{"horizontally scrolled echo", "$ing-config | include hostname\r\nhostname R1\r\nR1#", "show running-config | include hostname",
			[]string{"hostname R1"}},
		{"scrolled echo after prompt", "R1#$ing-config | include hostname\r\nhostname R1\r\n", "show running-config | include hostname",
			[]string{"hostname R1"}},
		{"dollar line not from command kept", "$ 5 items\r\nline\r\n", "show arp",
			[]string{"$ 5 items", "line"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := commandLines(tc.prefix, tc.command)
			assert.Equal(t, len(tc.want), len(got), "%q", got)
			for i := range tc.want {
				assert.Equal(t, tc.want[i], got[i])
			}
		})
	}
}

func readySession(t *testing.T, cmds ...step) (*Session, *fakeTransport) {
	t.Helper()
	op := newOpener().add("10.0.0.1", device("R1", cmds...))
	sess, err := NewAuthenticator(op, testOptions()).Login(context.Background(), telnetTarget("10.0.0.1"), testCreds)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess, op.transport("10.0.0.1")
}

func TestRunExcludesEchoAndTerminator(t *testing.T) {
	commands := []string{"show arp", "show run | include hostname", "show interfaces status | include connected", "x"}
	var cmds []step
	for _, c := range commands {
		cmds = append(cmds, iosCmd(c, "payload for "+c+"\r\n", "R1#"))
	}
	sess, _ := readySession(t, cmds...)

	for _, c := range commands {
		out, err := sess.Run(context.Background(), c)
		require.NoError(t, err, c)
		assert.Equal(t, []string{"payload for " + c}, out.Lines)
		assert.Equal(t, prompt.PrivExec, out.Prompt)
		assert.Equal(t, "R1#", out.PromptText)
	}
}

func TestRunStopsOnlyAtOwnHostPrompt(t *testing.T) {
	sess, _ := readySession(t, iosCmd("show cdp neighbors detail", "Device ID: SW9\r\nSW9#\r\nPlatform: cisco\r\n", "R1#"))

	out, err := sess.Run(context.Background(), "show cdp neighbors detail")
	require.NoError(t, err)
	assert.Equal(t, []string{"Device ID: SW9", "SW9#", "Platform: cisco"}, out.Lines)
}

func TestRunConfigTerminator(t *testing.T) {
	sess, _ := readySession(t,
		iosCmd("configure terminal", "Enter configuration commands, one per line.  End with CNTL/Z.\r\n", "R1(config)#"),
		iosCmd("end", "", "R1#"),
	)

	out, err := sess.Run(context.Background(), "configure terminal", prompt.ConfigPrompt)
	require.NoError(t, err)
	assert.Equal(t, prompt.ConfigPrompt, out.Prompt)
	assert.Equal(t, "R1(config)#", out.PromptText)
	assert.Len(t, out.Lines, 1)

	out, err = sess.Run(context.Background(), "end", prompt.PrivExec)
	require.NoError(t, err)
	assert.Empty(t, out.Lines)
}

func TestRunTimeoutDiscardsPartialOutput(t *testing.T) {
	sess, _ := readySession(t, step{"show tech-support", "show tech-support\r\n------ show version ------\r\n --More-- "})

	out, err := sess.Run(context.Background(), "show tech-support")
	assert.ErrorIs(t, err, operation.ErrTimeout)
	assert.Empty(t, out.Lines)
}

func TestRunTimeoutErrorHidesSecret(t *testing.T) {
	sess, _ := readySession(t)

	_, err := sess.Run(context.Background(), "enable secret t0pS3cret", prompt.ConfigPrompt)
	require.ErrorIs(t, err, operation.ErrTimeout)
	assert.NotContains(t, err.Error(), "t0pS3cret")
}
