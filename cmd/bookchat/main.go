package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bookchat/internal/apiclient"
	"bookchat/internal/cli"
	"bookchat/internal/config"
	"bookchat/internal/recommend"
	"bookchat/internal/session"
	"bookchat/internal/speech"
	"bookchat/internal/tokenstore"
	"bookchat/internal/transcript"
	"bookchat/internal/util"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bookchat",
	Short: "Terminal client for the book recommendation bot",
	Long: `bookchat talks to a book recommendation backend: chat with the bot,
browse its book suggestions, keep favorites and revisit saved chats.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (default config.yaml)")
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := util.InitLogger(cfg.LogLevel)

	timeout, err := config.ParseRequestTimeout(cfg.RequestTimeout)
	if err != nil {
		return err
	}

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath, err = tokenstore.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve token path: %w", err)
		}
	}
	tokens, err := tokenstore.New(tokenPath)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}

	api := apiclient.New(cfg.APIBaseURL, timeout)
	sess := session.NewController(api, tokens, logger)
	sess.SetHistoryLimit(cfg.HistoryLimit)
	panel := recommend.NewPanel()
	tc := transcript.NewController(api, sess, panel, logger)
	recognizer := speech.NewCommand(cfg.SpeechCommand)

	app := cli.New(sess, tc, panel, recognizer, logger, os.Stdin, os.Stdout)
	return app.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
