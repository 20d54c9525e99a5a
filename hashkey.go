package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"classifier_backend/webui"
)

// runHashKey hashes the key given as the only argument, or the first line
// of stdin when no argument is given.
func runHashKey(args []string, stdin io.Reader, stdout io.Writer) error {
	var key string
	switch len(args) {
	case 0:
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		key = strings.TrimSpace(line)
	case 1:
		key = args[0]
	default:
		return usageError{"hashkey takes at most one argument"}
	}
	if key == "" {
		return usageError{"hashkey needs a non-empty key"}
	}

	hash, err := webui.HashAPIKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}
