package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

const (
	inputStdin = "stdin"
	inputFile  = "file"
	inputTCP   = "tcp"
)

// parseInput splits "stdin", "file:<path>" or "tcp:<host:port>".
func parseInput(spec string) (kind, target string, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "-" || spec == inputStdin {
		return inputStdin, "", nil
	}
	kind, target, ok := strings.Cut(spec, ":")
	if !ok || strings.TrimSpace(target) == "" {
		return "", "", fmt.Errorf("invalid input %q (want stdin, file:<path> or tcp:<addr>)", spec)
	}
	switch kind {
	case inputFile, inputTCP:
		return kind, strings.TrimSpace(target), nil
	default:
		return "", "", fmt.Errorf("unsupported input kind %q", kind)
	}
}

func openInput(ctx context.Context, spec string) (io.ReadCloser, error) {
	kind, target, err := parseInput(spec)
	if err != nil {
		return nil, err
	}
	switch kind {
	case inputFile:
		f, err := os.Open(target)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		return f, nil
	case inputTCP:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", target)
		if err != nil {
			return nil, fmt.Errorf("dial input: %w", err)
		}
		return conn, nil
	default:
		return os.Stdin, nil
	}
}
