package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"roomcraft/internal/auth"
	"roomcraft/internal/config"
)

func main() {
	var (
		userID = flag.String("user", "", "User id to embed in the token")
		ttl    = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *userID == "" {
		log.Fatal("user id is required (use -user)")
	}

	cfg := config.FromEnv()
	verifier := auth.Verifier{Secret: []byte(cfg.JWTSecret)}
	token, err := verifier.Issue(*userID, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
