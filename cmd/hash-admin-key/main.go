package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-admin-key reads a key from the terminal and prints its bcrypt hash,
// for use as ADMIN_KEY_HASH. Storing the hash instead of the plain key keeps
// the secret out of .env files and deployment manifests.
func main() {
	fmt.Println("=== Hash Admin Key ===")
	fmt.Print("Enter Admin Key: ")

	byteKey, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after hidden input
	if err != nil {
		fmt.Println("Error reading key")
		os.Exit(1)
	}
	if len(byteKey) < 8 {
		fmt.Println("Error: Key must be at least 8 characters")
		os.Exit(1)
	}

	fmt.Print("Confirm Admin Key: ")
	byteConfirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading confirmation")
		os.Exit(1)
	}
	if string(byteKey) != string(byteConfirm) {
		fmt.Println("Error: Keys do not match")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword(byteKey, bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error hashing key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAdd this to your environment:")
	fmt.Printf("ADMIN_KEY_HASH=%s\n", string(hash))
}
