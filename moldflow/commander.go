package moldflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// maxLineSize is the longest output line Stream passes on
const maxLineSize = 1024 * 1024

// Commander runs external programs
type Commander interface {
	// Output runs the program and returns stdout and stderr combined
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Stream runs the program and calls line for every output line
	Stream(ctx context.Context, line func(string), name string, args ...string) error
}

// ExecCommander runs programs as hidden child processes
type ExecCommander struct{}

// Output implements Commander
func (ExecCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	return cmd.CombinedOutput()
}

// Stream implements Commander
func (ExecCommander) Stream(ctx context.Context, line func(string), name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return err
	}

	serr := scanLines(stdout, line, maxLineSize)

	if err := cmd.Wait(); err != nil {
		return err
	}

	return serr
}

// scanLines calls line for every line of r. After a read error or a line
// longer than max, the rest of r is discarded so the writer never blocks.
func scanLines(r io.Reader, line func(string), max int) error {
	size := 64 * 1024
	if size > max {
		size = max
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, size), max)
	for scanner.Scan() {
		line(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		io.Copy(io.Discard, r)
		return fmt.Errorf("Error reading output: %w", err)
	}

	return nil
}
