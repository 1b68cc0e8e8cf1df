package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"azdoauth/internal/provider/azuredevops/azdotest"
)

// Prints a client assertion the mock Azure DevOps server accepts, for use as
// AZDOAUTH_PROVIDER_CLIENTSECRET during local development.
func main() {
	key := flag.String("key", azdotest.DefaultKey, "signing key shared with the mock server")
	clientID := flag.String("client-id", "local-dev", "app id placed in sub")
	ttl := flag.Duration("ttl", 24*time.Hour, "assertion lifetime")
	flag.Parse()

	now := time.Now()
	token, err := azdotest.Sign(*key, jwt.MapClaims{
		"sub": *clientID,
		"iss": "app.vstoken.visualstudio.com",
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	})
	if err != nil {
		log.Fatal("failed to sign assertion:", err)
	}

	fmt.Println(token)
	fmt.Println()
	fmt.Println("Use it with:")
	fmt.Printf("export AZDOAUTH_PROVIDER_CLIENTID=%s\n", *clientID)
	fmt.Printf("export AZDOAUTH_PROVIDER_CLIENTSECRET=%s\n", token)
}
