// Package main provides a simple tool to generate key material: a base64
// symmetric key for the crypto engine, or an age key pair for encrypted
// backups.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"github.com/narvanalabs/securekv/internal/backup"
	"github.com/narvanalabs/securekv/internal/crypto"
)

func main() {
	ageKeys := flag.Bool("age", false, "Generate an age key pair for encrypted backups")
	flag.Parse()

	if *ageKeys {
		recipient, identity, err := backup.GenerateKeyPair()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating age key pair: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("BACKUP_AGE_RECIPIENT=%s\n", recipient)
		fmt.Printf("BACKUP_AGE_IDENTITY=%s\n", identity)
		return
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("SECUREKV_ENCRYPTION_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
}
