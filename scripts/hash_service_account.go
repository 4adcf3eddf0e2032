package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Quick utility to generate a service account entry for config.yaml
// Usage: go run scripts/hash_service_account.go <name> <password>
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/hash_service_account.go <name> <password>")
		fmt.Println("Example: go run scripts/hash_service_account.go intake-kiosk 0i2rinbcp12yc31h")
		os.Exit(1)
	}

	name, password := os.Args[1], os.Args[2]

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Add to config.yaml:\n\n")
	fmt.Printf("service_accounts:\n")
	fmt.Printf("  - name: %s\n", name)
	fmt.Printf("    password_hash: \"%s\"\n", string(hashedPassword))
	fmt.Printf("    profile_id: 0\n")
	fmt.Printf("    organization_id: 0\n")
	fmt.Printf("    roles: [intake]\n")
}
