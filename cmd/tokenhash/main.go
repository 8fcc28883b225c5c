// tokenhash prints the bcrypt hash of a bearer token for renderserver's
// -token-hash-file.
package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/golang/glog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var cost = flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")

func do() error {
	fmt.Fprint(os.Stderr, "Token: ")
	token, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("while reading token: %w", err)
	}
	if len(token) == 0 {
		return fmt.Errorf("empty token")
	}

	hash, err := bcrypt.GenerateFromPassword(token, *cost)
	if err != nil {
		return fmt.Errorf("while hashing token: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}

func main() {
	flag.Parse()

	if err := do(); err != nil {
		glog.Errorf("Error: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
