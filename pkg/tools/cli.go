/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package tools

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmOperation asks a yes/no question on stdin.
func ConfirmOperation(s string) bool {
	return ConfirmFrom(os.Stdin, os.Stdout, s)
}

// ConfirmFrom asks a yes/no question on out and reads the answer from in.
// Anything but "y" or "yes" is a no.
func ConfirmFrom(in io.Reader, out io.Writer, s string) bool {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "%s [y/N]: ", s)
	text, _ := reader.ReadString('\n')
	text = strings.ToLower(strings.TrimSpace(text))
	return text == "y" || text == "yes"
}
