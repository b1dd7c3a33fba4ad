package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/phishgard/internal/adapters/filter"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/di"
	"github.com/mikey/phishgard/internal/message"
	"github.com/mikey/phishgard/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	defer func() {
		if closer, ok := llmClient.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close LLM client", zap.Error(err))
			}
		}
	}()

	// Read email from file or stdin
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Debug("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Debug("Reading email from stdin")
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ctx := context.Background()

	if flags.HeadersOnly {
		cli, ok := emailFilter.(*filter.CliFilter)
		if !ok {
			return fmt.Errorf("header analysis requires the cli filter, got %T", emailFilter)
		}
		_, err := cli.ProcessHeaders(ctx, string(raw))
		return err
	}

	email, err := message.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse email: %w", err)
	}

	_, err = emailFilter.ProcessEmail(ctx, email)
	return err
}
