package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/cf-jongsik/validate-token/pkg/hmactoken"
)

func usage() {
	base := path.Base(os.Args[0])
	fmt.Printf(`%s — mint composite login tokens for the gate

Usage:
  %s --secret <secret> --ip <client-ip> [--forms <forms-token>] [--access <access-token>] [--age <duration>]

The secret may also be supplied via the HMAC_SECRET environment variable.
--age issues the token that far in the past (useful for expiry testing).

Examples:
  %s --secret s3cr3t --ip 203.0.113.7
  %s --secret s3cr3t --ip 203.0.113.7 --forms form-abc --access bearer-xyz
  %s --secret s3cr3t --ip 203.0.113.7 --age 10m
`, base, base, base, base, base)
}

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func main() {
	flag.Usage = usage

	secret := flag.String("secret", os.Getenv("HMAC_SECRET"), "shared signing secret")
	clientIP := flag.String("ip", "", "client IP the token is bound to")
	formsToken := flag.String("forms", "forms_token", "forms token segment")
	accessToken := flag.String("access", "", "optional access token segment")
	age := flag.Duration("age", 0, "issue the token this far in the past")
	proofOnly := flag.Bool("proof-only", false, "print only the proof segment")
	flag.Parse()

	if *secret == "" {
		fatalf("missing --secret (or HMAC_SECRET)")
	}
	if *clientIP == "" {
		fatalf("missing --ip")
	}
	if *formsToken == "" {
		fatalf("--forms must not be empty")
	}

	proof := hmactoken.Issue([]byte(*secret), *clientIP, time.Now().Add(-*age))
	if *proofOnly {
		fmt.Println(proof)
		return
	}

	fmt.Println(hmactoken.BuildComposite(*formsToken, proof, *accessToken))
}
