package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/markblanca/quicklink-delivery/internal/shared/auth"
	"github.com/markblanca/quicklink-delivery/internal/shared/config"
)

func main() {
	token := flag.String("token", "", "Session token to verify (default: read the session slot)")
	flag.Parse()

	// Загружаем конфигурацию (тот же способ, что и в движке)
	cfg := config.Load()

	tok := *token
	if tok == "" {
		// Токен не передан — читаем слот сессии
		data, err := os.ReadFile(cfg.Session.TokenPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: no -token flag and cannot read session slot %s: %v\n",
				cfg.Session.TokenPath, err)
			os.Exit(1)
		}
		tok = strings.TrimSpace(string(data))
	}

	fmt.Printf("🔍 Verifying session token...\n\n")

	jwtService := auth.NewJWTService(cfg.JWT)

	claims, err := jwtService.ValidateToken(tok)
	if err != nil {
		fmt.Printf("❌ Token validation FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Token is VALID!\n\n")
	fmt.Printf("Claims:\n")
	fmt.Printf("  User ID:  %s\n", claims.UserID)
	fmt.Printf("  Username: %s\n", claims.Username)
	fmt.Printf("  Name:     %s\n", claims.Name)
	fmt.Printf("  Role:     %s\n", claims.Role)
	fmt.Printf("  Issuer:   %s\n", claims.Issuer)
	fmt.Printf("  Issued At:  %s\n", claims.IssuedAt.Time)
	fmt.Printf("  Expires At: %s\n", claims.ExpiresAt.Time)
}
