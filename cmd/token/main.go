// Command token mints an HS256 access token for local development,
// compatible with the server's token verification.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	identity := flag.String("identity", "", "identity (email) to mint the token for")
	secret := flag.String("secret", os.Getenv("TOKEN_SECRET"), "shared HS256 secret (defaults to TOKEN_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *identity == "" {
		fmt.Fprintln(os.Stderr, "usage: token -identity alice@example.com [-secret ...] [-ttl 24h]")
		os.Exit(1)
	}
	if *secret == "" {
		*secret = "dev-secret-do-not-use-in-production"
		fmt.Fprintln(os.Stderr, "warning: using development secret")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   *identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	})

	signed, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "signing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}
