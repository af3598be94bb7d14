package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/latebit/tquery/internal/auth"
)

const usage = "usage: tquery-token generate -label NAME [-stations PATTERNS] [-ops OPERATIONS] [-expires DURATION] [-tokens FILE]\n"

func main() {
	if len(os.Args) < 2 || os.Args[1] != "generate" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	label := fs.String("label", "", "name of the token entry (required)")
	stations := fs.String("stations", "*", "comma-separated station patterns (e.g. \"Kendall Station,South*\")")
	ops := fs.String("ops", auth.OpEnable+","+auth.OpDisable, "comma-separated operations")
	expires := fs.Duration("expires", 0, "token lifetime (0 = never expires)")
	tokensFile := fs.String("tokens", "", "path to tokens.toml file (adds the entry if provided)")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage+"\n")
		fmt.Fprintf(os.Stderr, "Generates a random operator token for enabling and disabling stations.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if *label == "" {
		fs.Usage()
		os.Exit(1)
	}

	opsList := splitTrimmed(*ops)
	for _, op := range opsList {
		if op != auth.OpEnable && op != auth.OpDisable {
			log.Fatalf("unknown operation %q", op)
		}
	}

	// Generate 32 random bytes → 64 hex chars.
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("generate random bytes: %v", err)
	}
	rawToken := hex.EncodeToString(secret)

	tok := auth.Token{
		Hash:       auth.HashToken(rawToken),
		Stations:   splitTrimmed(*stations),
		Operations: opsList,
	}
	if *expires > 0 {
		tok.Expires = time.Now().UTC().Add(*expires).Truncate(time.Second)
	}

	if *tokensFile != "" {
		if err := auth.AppendToken(*tokensFile, *label, tok); err != nil {
			log.Fatalf("write token entry: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Token %q added to %s\n", *label, *tokensFile)
	} else {
		fmt.Fprintln(os.Stderr, "Add this to your tokens.toml:")
		fmt.Fprintf(os.Stderr, "\n[tokens.%q]\nhash = %q\nstations = [%s]\noperations = [%s]\n",
			*label, tok.Hash, quotedList(tok.Stations), quotedList(tok.Operations))
		if !tok.Expires.IsZero() {
			fmt.Fprintf(os.Stderr, "expires = %s\n", tok.Expires.Format(time.RFC3339))
		}
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Raw token (give to the operator, shown once):")
	fmt.Println(rawToken)
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}
