// Package sysboard implements clipboard operations on the system clipboard.
// It uses the native clipboard through golang.design/x/clipboard when that
// can be initialised, and otherwise falls back to platform commands: on
// macOS pbcopy/pbpaste, on Linux xclip or xsel.
package sysboard

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"

	xclipboard "golang.design/x/clipboard"
)

var (
	nativeOnce sync.Once
	nativeErr  error
)

// native reports whether the native clipboard is usable. Initialisation
// fails on headless systems and on builds without cgo.
func native() bool {
	nativeOnce.Do(func() {
		nativeErr = xclipboard.Init()
	})
	return nativeErr == nil
}

// SystemClipboard implements clipboard.Clipboard for the system clipboard
type SystemClipboard struct{}

// New creates a new SystemClipboard instance
func New() *SystemClipboard {
	return &SystemClipboard{}
}

// IsSupported returns true if clipboard operations are supported on this system
func (s *SystemClipboard) IsSupported() bool {
	if native() {
		return true
	}
	switch runtime.GOOS {
	case "darwin":
		// Check if pbcopy/pbpaste are available
		if _, err := exec.LookPath("pbcopy"); err != nil {
			return false
		}
		if _, err := exec.LookPath("pbpaste"); err != nil {
			return false
		}
		return true
	case "linux":
		// Check if xclip or xsel are available
		if _, err := exec.LookPath("xclip"); err == nil {
			return true
		}
		if _, err := exec.LookPath("xsel"); err == nil {
			return true
		}
		return false
	default:
		return false
	}
}

// Read returns the clipboard text
func (s *SystemClipboard) Read() (io.ReadCloser, error) {
	if native() {
		return io.NopCloser(bytes.NewReader(xclipboard.Read(xclipboard.FmtText))), nil
	}
	switch runtime.GOOS {
	case "darwin":
		return readWithCommand("pbpaste")
	case "linux":
		return readLinux()
	default:
		return nil, fmt.Errorf("clipboard operations not supported on %s", runtime.GOOS)
	}
}

// Write replaces the clipboard text with the content of r
func (s *SystemClipboard) Write(r io.Reader) error {
	if native() {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		xclipboard.Write(xclipboard.FmtText, data)
		return nil
	}
	switch runtime.GOOS {
	case "darwin":
		if err := writeWithCommand(r, "pbcopy"); err != nil {
			return fmt.Errorf("failed to run pbcopy: %w", err)
		}
		return nil
	case "linux":
		return writeLinux(r)
	default:
		return fmt.Errorf("clipboard operations not supported on %s", runtime.GOOS)
	}
}

// cmdReadCloser wraps a command's stdout and ensures the command is waited on when closed
type cmdReadCloser struct {
	stdout io.ReadCloser
	cmd    *exec.Cmd
}

func (c *cmdReadCloser) Read(p []byte) (n int, err error) {
	return c.stdout.Read(p)
}

func (c *cmdReadCloser) Close() error {
	// Close stdout first
	if err := c.stdout.Close(); err != nil {
		c.cmd.Wait() // Still wait for command even if close fails
		return err
	}

	if runtime.GOOS != "windows" {
		c.cmd.Process.Signal(os.Interrupt) // send interrupt signal to kill process
	}
	// Wait for command to finish
	return c.cmd.Wait()
}

// readLinux reads from clipboard on Linux using xclip or xsel
func readLinux() (io.ReadCloser, error) {
	// Try xclip first
	if reader, err := readWithCommand("xclip", "-selection", "clipboard", "-o"); err == nil {
		return reader, nil
	}

	// Fall back to xsel
	reader, err := readWithCommand("xsel", "--clipboard", "--output")
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard (tried xclip and xsel): %w", err)
	}

	return reader, nil
}

// writeLinux writes to clipboard on Linux using xclip or xsel. The content is
// buffered so the fallback command sees it too.
func writeLinux(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	// Try xclip first
	if err := writeWithCommand(bytes.NewReader(data), "xclip", "-selection", "clipboard"); err == nil {
		return nil
	}

	// Fall back to xsel
	if err := writeWithCommand(bytes.NewReader(data), "xsel", "--clipboard", "--input"); err != nil {
		return fmt.Errorf("failed to write clipboard (tried xclip and xsel): %w", err)
	}

	return nil
}

// readWithCommand executes a command and returns its output as a stream
func readWithCommand(name string, args ...string) (io.ReadCloser, error) {
	cmd := exec.Command(name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return &cmdReadCloser{stdout: stdout, cmd: cmd}, nil
}

// writeWithCommand executes a command with data as stdin
func writeWithCommand(r io.Reader, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = r

	return cmd.Run()
}
