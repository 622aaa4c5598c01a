/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tieubaoca/pdf-quizbot/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Error loading .env file:", err)
	}
}
