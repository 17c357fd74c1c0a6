package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"enable secret s3cr3t":                 "enable secret ******",
		"enable secret 5 $1$abcd$xyz":          "enable secret 5 ******",
		"username admin password 0 cisco":      "username admin password 0 ******",
		"Password: hunter2":                    "Password: ******",
		"show interfaces status | i connected": "show interfaces status | i connected",
		"Password:":                            "Password:",
	}
	for in, want := range cases {
		assert.Equal(t, want, Redact(in), in)
	}
}

func TestParseOutputLines(t *testing.T) {
	short := ParseOutputLines([]string{"a", "b"}, 5)
	assert.Equal(t, []string{"a", "b"}, short.HeadLines)
	assert.Empty(t, short.TailLines)

	long := ParseOutputLines([]string{"1", "2", "3", "4", "5", "6", "7"}, 2)
	assert.Equal(t, []string{"1", "2"}, long.HeadLines)
	assert.Equal(t, []string{"6", "7"}, long.TailLines)

	overlap := ParseOutputLines([]string{"1", "2", "3"}, 2)
	assert.Equal(t, []string{"1", "2"}, overlap.HeadLines)
	assert.Equal(t, []string{"3"}, overlap.TailLines)
}

func newCapture() (*logrus.Entry, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), &buf
}

func TestDebugCommandOutputRedacts(t *testing.T) {
	entry, buf := newCapture()
	DebugCommandOutput(entry, "enable secret topsecret", []string{"R1(config)#"}, 5)
	assert.NotContains(t, buf.String(), "topsecret")
	assert.Contains(t, buf.String(), "Command echo")

	entry.Logger.SetLevel(logrus.InfoLevel)
	buf.Reset()
	DebugCommandOutput(entry, "show arp", []string{"x"}, 5)
	assert.Empty(t, buf.String())
}

func TestTranscriptWriterMasksSends(t *testing.T) {
	entry, buf := newCapture()
	w := TranscriptWriter(entry)

	_, _ = w.Write([]byte("Sent: \"hunter2\\n\"\nMatch for RE: \"Password:\" found: [\"Pass"))
	_, _ = w.Write([]byte("word:\"]\n"))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "sent ******")
	assert.Contains(t, out, "Password:")
}
