package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes git subcommands inside a working tree.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the configured git binary.
type ExecRunner struct {
	GitBin string
	logger *zap.Logger
}

func NewExecRunner(gitBin string, logger *zap.Logger) *ExecRunner {
	if strings.TrimSpace(gitBin) == "" {
		gitBin = "git"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{GitBin: gitBin, logger: logger}
}

func (e *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.GitBin, args...)
	if strings.TrimSpace(dir) != "" {
		cmd.Dir = dir
	}
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	start := time.Now()
	err := cmd.Run()
	e.logger.Debug("git command",
		zap.String("op", sanitizeArgs(args)),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil),
	)
	if err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", sanitizeArgs(args), redactTokens(msg))
	}
	return out.String(), nil
}

var (
	safeArg      = regexp.MustCompile(`^[a-z][a-z-]*$`)
	credentialRe = regexp.MustCompile(`https?://[^\s@]+@`)
	tokenRe      = regexp.MustCompile(`(?i)(token|secret|password|passwd|bearer)=[^\s]+`)
)

// sanitizeArgs keeps at most the first two subcommand words so paths never
// end up in logs or error messages.
func sanitizeArgs(args []string) string {
	if len(args) == 0 {
		return "<no-args>"
	}
	words := make([]string, 0, 2)
	for _, a := range args {
		if !safeArg.MatchString(a) {
			break
		}
		words = append(words, a)
		if len(words) == 2 {
			break
		}
	}
	if len(words) == 0 {
		return "<redacted>"
	}
	return strings.Join(words, " ")
}

func redactTokens(s string) string {
	s = credentialRe.ReplaceAllString(s, "https://<redacted>@")
	return tokenRe.ReplaceAllString(s, "$1=<redacted>")
}
