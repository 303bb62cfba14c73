package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/markblanca/quicklink-delivery/internal/shared/auth"
	"github.com/markblanca/quicklink-delivery/internal/shared/config"
)

func main() {
	userID := flag.String("user", "admin", "User ID")
	username := flag.String("username", "admin", "Username")
	role := flag.String("role", "ADMIN", "Role (ADMIN|DELIVERY)")
	name := flag.String("name", "Administrador", "Display name")
	flag.Parse()

	// Загружаем конфигурацию
	cfg := config.Load()

	// Создаем JWT сервис
	jwtService := auth.NewJWTService(cfg.JWT)

	// Генерируем токен
	token, err := jwtService.GenerateToken(*userID, *username, *role, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating session token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Session token generated successfully!\n\n")
	fmt.Printf("User ID:   %s\n", *userID)
	fmt.Printf("Username:  %s\n", *username)
	fmt.Printf("Role:      %s\n", *role)
	fmt.Printf("\nToken:\n%s\n", token)
	fmt.Printf("\n📋 Copy this for API requests:\n")
	fmt.Printf("Authorization: Bearer %s\n", token)
	fmt.Printf("\n💡 Example curl:\n")
	fmt.Printf("curl -X POST http://localhost:%d/services \\\n", cfg.HTTP.Port)
	fmt.Printf("  -H 'Authorization: Bearer %s' \\\n", token)
	fmt.Printf("  -H 'Content-Type: application/json' \\\n")
	fmt.Printf("  -d '{\n")
	fmt.Printf("    \"customerName\": \"Juan Perez\",\n")
	fmt.Printf("    \"customerPhone\": \"3001234567\",\n")
	fmt.Printf("    \"activity\": \"Entrega de paquete\",\n")
	fmt.Printf("    \"value\": 15000,\n")
	fmt.Printf("    \"paymentType\": \"CASH\"\n")
	fmt.Printf("  }'\n")
}
