package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/bacheca/cmd/api/commands"
)

// @title Bacheca API
// @version 1.0
// @description Shared to-do boards: three category boards per user, tasks with checklists, sharing between users.

// @contact.name Bacheca maintainers
// @contact.url https://github.com/taskmaster/bacheca

// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "bacheca",
		Short:         "Bacheca API Server",
		Long:          `Bacheca keeps personal to-do boards for University, Work and Free Time and lets users share tasks with each other.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
