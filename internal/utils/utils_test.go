package utils

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPersonDirName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"John Smith", "John_Smith"},
		{"Ada", "Ada"},
		{"  two  spaces ", "__two__spaces_"},
		{"Jean-Luc Picard", "Jean-Luc_Picard"},
	}
	for _, tt := range tests {
		if got := PersonDirName(tt.in); got != tt.want {
			t.Errorf("PersonDirName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBytesSHA256(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := BytesSHA256([]byte("abc")); got != want {
		t.Errorf("BytesSHA256 = %s, want %s", got, want)
	}
	if BytesSHA256([]byte("abc")) == BytesSHA256([]byte("abd")) {
		t.Error("digest did not change with content")
	}
}

func TestShowErrorIncludesWorkerLogs(t *testing.T) {
	var out bytes.Buffer
	old := ErrorOutput
	ErrorOutput = &out
	defer func() { ErrorOutput = old }()

	cmd := NewSafeCommand("true")
	cmd.Stderr.WriteString("Traceback: boom")

	ShowError("Worker crashed", errors.New("broken pipe"), cmd)

	got := out.String()
	for _, want := range []string{"Worker crashed", "broken pipe", "Traceback: boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}
