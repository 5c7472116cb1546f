package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/security"
	entityextractor "loan-assistant/internal/conversation/entity-extractor"
	faqclassifier "loan-assistant/internal/conversation/faq-classifier"
	generativefallback "loan-assistant/internal/conversation/generative-fallback"
	statusintent "loan-assistant/internal/conversation/status-intent"
	"loan-assistant/pkg/registry"

	"github.com/spf13/cobra"
)

// classifyCmd explains how a message would be understood without touching
// any backend.
func classifyCmd() *cobra.Command {
	var (
		catalogFile   string
		accountPrefix string
		threshold     float64
	)

	cmd := &cobra.Command{
		Use:   "classify [message]",
		Short: "Show extracted entities, status signals and the FAQ match for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			extractor, err := entityextractor.New(accountPrefix)
			if err != nil {
				return err
			}
			catalog := faqclassifier.DefaultCatalog()
			if catalogFile != "" {
				if catalog, err = faqclassifier.LoadCatalogFile(catalogFile); err != nil {
					return err
				}
			}
			classifier, err := faqclassifier.New(catalog, faqclassifier.Config{Threshold: threshold}, nil, logger.NewNoOpLogger())
			if err != nil {
				return err
			}

			entities := extractor.Extract(message)
			detector := statusintent.New(false)
			result := classifier.Classify(message)

			fmt.Printf("Loan IDs:        %v\n", entities.LoanIDs)
			fmt.Printf("Account numbers: %v\n", entities.AccountNumbers)
			fmt.Printf("Status signals:  %v\n", detector.Signals(message))
			fmt.Printf("Status (strict): %v\n", detector.Detect(message, entities, statusintent.Strict))
			if result.Matched() {
				fmt.Printf("FAQ intent:      %s (score %.2f)\n", result.Tag(), result.Score)
			} else {
				fmt.Println("FAQ intent:      none")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogFile, "catalog", "", "intent catalog JSON file (default: built-in)")
	cmd.Flags().StringVar(&accountPrefix, "account-prefix", entityextractor.DefaultAccountPrefix, "account number prefix")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.3, "minimum overlap score")
	return cmd
}

func probeLLMCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "probe-llm",
		Short: "Check the configured generative service and optionally run one prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.NewStructured(cfg.Logging.Level, "console", "stderr")

			generator, err := generativefallback.NewGenerator(cfg.LLM, log)
			if err != nil {
				return err
			}
			if generator == nil {
				fmt.Println("generative fallback is disabled (llm.provider = none)")
				return nil
			}

			fallback := generativefallback.New(cmd.Context(), generator, generativefallback.Config{
				Model:        cfg.LLM.Model,
				Timeout:      config.GetDuration(cfg.LLM.Timeout),
				ProbeTimeout: config.GetDuration(cfg.LLM.ProbeTimeout),
			}, log)
			fmt.Printf("provider=%s model=%s available=%v\n", cfg.LLM.Provider, cfg.LLM.Model, fallback.Available())
			if !fallback.Available() {
				return fallback.Err()
			}
			if prompt == "" {
				return nil
			}

			start := time.Now()
			reply, ok := fallback.Reply(context.Background(), prompt)
			if !ok {
				return errors.New("generation failed")
			}
			fmt.Printf("(%s)\n%s\n", time.Since(start).Round(time.Millisecond), reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to send after the probe")
	return cmd
}

func tokenCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or inspect customer session tokens",
	}
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "token secret (default: $CUSTOMER_TOKEN_SECRET)")

	codec := func() (*security.TokenCodec, error) {
		if secret == "" {
			secret = os.Getenv("CUSTOMER_TOKEN_SECRET")
		}
		return security.NewTokenCodec(secret)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encode [customer-id]",
		Short: "Seal a customer id into a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec()
			if err != nil {
				return err
			}
			token, err := c.Encode(args[0])
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decode [token]",
		Short: "Open a session token and print the customer id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec()
			if err != nil {
				return err
			}
			id, err := c.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	})
	return cmd
}

// activitiesCmd inspects the job types served to BPMN processes.
func activitiesCmd() *cobra.Command {
	var registryFile string

	load := func() (*registry.ActivityRegistry, error) {
		if registryFile == "" {
			return registry.Default(), nil
		}
		return registry.LoadRegistry(registryFile)
	}

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List the Zeebe job types this service handles",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := load()
			if err != nil {
				return err
			}
			fmt.Printf("registry version %s (%d activities)\n", reg.Version, len(reg.Activities))
			for _, a := range reg.Activities {
				fmt.Printf("  %-14s timeout=%-5s retries=%d  %s\n", a.TaskType, a.Timeout, a.Retries, a.Description)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&registryFile, "file", "", "activity registry JSON file (default: built-in)")

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [task-type] [variables-json]",
		Short: "Check job variables against an activity's input schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := load()
			if err != nil {
				return err
			}
			activity, err := reg.Activity(args[0])
			if err != nil {
				return err
			}
			if err := activity.ValidateInput([]byte(args[1])); err != nil {
				return err
			}
			fmt.Println("valid")
			return nil
		},
	})
	return cmd
}
