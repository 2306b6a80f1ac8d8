// Command genkey mints a webhook API key. The full key is shown once; only
// the bcrypt hash of the secret is stored.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	label := flag.String("label", "default", "account label")
	flag.Parse()

	keyID := "whk_" + randomHex(8)
	secret := randomHex(24)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("API key (X-API-KEY header): %s.%s\n", keyID, secret)
	fmt.Printf("Secret hash:                %s\n", string(hash))
	fmt.Printf("\nWith a database:\n")
	fmt.Printf("  insert into webhook_accounts (key_id, secret_hash, label, active)\n")
	fmt.Printf("  values ('%s', '%s', '%s', true);\n", keyID, string(hash), *label)
	fmt.Printf("\nWithout a database:\n")
	fmt.Printf("  export WEBHOOK_KEY_ID=%s\n", keyID)
	fmt.Printf("  export WEBHOOK_SECRET_HASH='%s'\n", string(hash))
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal(err)
	}
	return hex.EncodeToString(buf)
}
