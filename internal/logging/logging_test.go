package logging

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", &buf)
	test.That(t, err, test.ShouldBeNil)

	logger.Named("storage").Info("File written")
	logger.Named("storage").Warn("Append failed")

	out := buf.String()
	test.That(t, out, test.ShouldNotContainSubstring, "File written")
	test.That(t, out, test.ShouldContainSubstring, "WARN")
	test.That(t, out, test.ShouldContainSubstring, "storage")
	test.That(t, out, test.ShouldContainSubstring, "Append failed")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", &bytes.Buffer{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStdoutConsole(t *testing.T) {
	c, err := OpenConsole("", 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Close(), test.ShouldBeNil)
}
