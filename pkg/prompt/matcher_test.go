package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEarliestOffsetWins(t *testing.T) {
	set, err := Default().Select(PrivExec, UserExec)
	require.NoError(t, err)

	m, ok := set.Match("banner\r\nR1>\r\nR1#")
	require.True(t, ok)
	assert.Equal(t, UserExec, m.Pattern)
	assert.Equal(t, "banner\r\n", m.Prefix)
	assert.Equal(t, "R1>\r", m.Text)
	assert.Equal(t, "\nR1#", m.Remainder)
}

func TestMatchTieResolvedByDeclarationOrder(t *testing.T) {
	a := Literal("short", "Pass")
	b := Literal("long", "Password")

	first := MustSet(a, b)
	m, ok := first.Match("Enter Password: ")
	require.True(t, ok)
	assert.Equal(t, Name("short"), m.Pattern)

	second := MustSet(b, a)
	m, ok = second.Match("Enter Password: ")
	require.True(t, ok)
	assert.Equal(t, Name("long"), m.Pattern)
	assert.Equal(t, "Enter ", m.Prefix)
}

func TestMatchLiteralIsQuoted(t *testing.T) {
	set := MustSet(Literal("cfg", "R1(config)#"))
	m, ok := set.Match("xx R1(config)# yy")
	require.True(t, ok)
	assert.Equal(t, "xx ", m.Prefix)
	assert.Equal(t, " yy", m.Remainder)

	_, ok = set.Match("R1config#")
	assert.False(t, ok)
}

func TestMatchInnerGroupsDoNotShiftClassification(t *testing.T) {
	set := MustSet(Regex("a", `(x)(y)z`), Regex("b", `(b)+`))
	m, ok := set.Match("..bb")
	require.True(t, ok)
	assert.Equal(t, Name("b"), m.Pattern)

	m, ok = set.Match("xyz b")
	require.True(t, ok)
	assert.Equal(t, Name("a"), m.Pattern)
}

func TestMatchNoMatch(t *testing.T) {
	_, ok := Default().Match("nothing interesting here")
	assert.False(t, ok)
}

func TestNewSetRejectsBadPatterns(t *testing.T) {
	_, err := NewSet()
	assert.Error(t, err)

	_, err = NewSet(Regex("a", `x`), Regex("a", `y`))
	assert.Error(t, err)

	_, err = NewSet(Regex("empty", `\s*`))
	assert.Error(t, err)

	_, err = NewSet(Regex("broken", `(`))
	assert.Error(t, err)

	_, err = NewSet(Pattern{Name: "blank"})
	assert.Error(t, err)
}

func TestDefaultAuthFailedBeatsLoginPrompt(t *testing.T) {
	set, err := Default().Select(UserExec, LoginPrompt, AuthFailed)
	require.NoError(t, err)

	m, ok := set.Match("\r\n% Login invalid\r\n\r\nUsername: ")
	require.True(t, ok)
	assert.Equal(t, AuthFailed, m.Pattern)
}

func TestDefaultLoginPrompt(t *testing.T) {
	set, err := Default().Select(LoginPrompt)
	require.NoError(t, err)

	m, ok := set.Match("\r\nUser Access Verification\r\n\r\nUsername: ")
	require.True(t, ok)
	assert.Equal(t, LoginPrompt, m.Pattern)

	_, ok = set.Match("Last login: Mon Apr 13 10:00:00 from 10.0.0.9\r\n")
	assert.False(t, ok)
}

func TestDefaultConfigPromptIsNotPrivExec(t *testing.T) {
	set, err := Default().Select(PrivExec, ConfigPrompt)
	require.NoError(t, err)

	m, ok := set.Match("configure terminal\r\nEnter configuration commands, one per line.\r\nR1(config)#")
	require.True(t, ok)
	assert.Equal(t, ConfigPrompt, m.Pattern)
	assert.Equal(t, "R1", HostFromPrompt(m.Text))
}

func TestForHostIgnoresForeignHashLines(t *testing.T) {
	set, err := Default().ForHost("R1")
	require.NoError(t, err)
	set, err = set.Select(PrivExec)
	require.NoError(t, err)

	buf := "show run | include hostname\r\nhostname R1\r\nrouter#\r\nR1#"
	m, ok := set.Match(buf)
	require.True(t, ok)
	assert.Equal(t, "show run | include hostname\r\nhostname R1\r\nrouter#\r\n", m.Prefix)
	assert.Equal(t, "R1#", m.Text)
}

func TestHostFromPrompt(t *testing.T) {
	cases := map[string]string{
		"R1#":                  "R1",
		"R1>":                  "R1",
		"\rcore-sw01(config)#": "core-sw01",
		"edge.lab#  ":          "edge.lab",
	}
	for in, want := range cases {
		assert.Equal(t, want, HostFromPrompt(in), in)
	}
}

func TestWithOverrides(t *testing.T) {
	set, err := WithOverrides(map[string]string{"user_exec": `(?m)^\S+\$\s*$`})
	require.NoError(t, err)
	m, ok := set.Match("switch$ ")
	require.True(t, ok)
	assert.Equal(t, UserExec, m.Pattern)

	_, err = WithOverrides(map[string]string{"nope": `x`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
	assert.Contains(t, err.Error(), "priv_exec")

	set, err = WithOverrides(nil)
	require.NoError(t, err)
	assert.Same(t, Default(), set)
}

func TestDefaultNamesKeepDeclarationOrder(t *testing.T) {
	assert.Equal(t, []Name{AuthFailed, LoginPrompt, PasswordPrompt, ConfigPrompt, PrivExec, UserExec}, Default().Names())
}

func TestReadResultTags(t *testing.T) {
	r := MatchedResult(Match{Pattern: PrivExec})
	assert.True(t, r.Is(PrivExec))
	assert.False(t, r.IsTimeout())

	cause := errors.New("timer expired")
	r = TimeoutResult(cause)
	assert.True(t, r.IsTimeout())
	assert.False(t, r.Is(PrivExec))
	assert.Equal(t, "timeout", r.Outcome.String())
	assert.ErrorIs(t, r.Err, cause)
}
