// supdto inspects and converts self-describing typed values.
//
// Usage:
//
//	supdto type [file]                 Describe a type document or registered type
//	supdto value [file]                Validate and print a value document
//	supdto encode [file]               Encode a value as binary or a C image
//	supdto decode [file]               Decode binary or a C image
//	supdto cheader [file]              Print the packed C declaration of a struct type
//	supdto archive put|get|history|keys
//
// If no file is given, reads from stdin.
package main

import (
	"os"

	"github.com/roach88/supdto/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
