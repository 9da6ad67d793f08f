package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (Python logs)
// so crash output survives a dead worker.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe.
// It prepares the command for execution but does not start it.
func NewSafeCommand(name string, args ...string) *SafeCommand {
	cmd := exec.Command(name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ErrorOutput is where ShowError writes. Tests swap it out.
var ErrorOutput io.Writer = os.Stderr

// ShowError prints a formatted error box and dumps Python logs if a SafeCommand is provided.
func ShowError(context string, err error, s *SafeCommand) {
	fmt.Fprintf(ErrorOutput, "\n---------------------------------------------------------\n")
	fmt.Fprintf(ErrorOutput, "🚨 FACEKIT ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(ErrorOutput, "DETAILS: %v\n", err)
	}

	if s != nil && s.Stderr != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(ErrorOutput, "\nPYTHON CRASH LOGS:\n%s\n", s.Stderr.String())
	}
	fmt.Fprintf(ErrorOutput, "---------------------------------------------------------\n")
}

// --- 2. Dataset helpers ---

// PersonDirName turns a free-text query into the folder name used for its images.
func PersonDirName(query string) string {
	return strings.ReplaceAll(query, " ", "_")
}

// BytesSHA256 returns the hex digest of data.
func BytesSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
