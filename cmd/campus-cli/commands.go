package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/campusbot/campusbot-go/internal/client"
	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/campusbot/campusbot-go/internal/conversation"
	"github.com/campusbot/campusbot-go/internal/intent"
	"github.com/campusbot/campusbot-go/internal/kvstore"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/internal/service"
	"github.com/campusbot/campusbot-go/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	visitorID  string
	dataDir    string
	logLevel   string
	offline    bool
}

// app 命令共享的依赖
type app struct {
	cfg     *config.Config
	catalog *intent.Registry
	replies *service.ReplyService
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "campus-cli",
		Short:        "Terminal client for the campus assistant",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults are used when empty)")
	root.PersistentFlags().StringVar(&opts.visitorID, "visitor", "local", "visitor id the history is stored under")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "history directory (overrides storage.dir)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "never call the remote backend")

	root.AddCommand(
		newChatCmd(opts),
		newClassifyCmd(opts),
		newHistoryCmd(opts),
		newClearCmd(opts),
	)
	return root
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (/clear to reset, /quit to exit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			return a.chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Print the category a message falls into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zapLogger, err := logger.NewConsoleLogger(opts.logLevel)
			if err != nil {
				return err
			}
			catalog, err := intent.NewBuiltinCatalog(zapLogger)
			if err != nil {
				return err
			}
			category := intent.NewClassifier(catalog).Classify(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), category)
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			store := a.replies.Store()
			turns := store.All()
			if last > 0 {
				turns = store.Recent(last)
			}
			if len(turns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no history)")
				return nil
			}
			for _, t := range turns {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), speaker(t.Role), t.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&last, "last", "n", 0, "only show the last n turns")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			a.replies.Store().Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
}

// newApp 加载配置并恢复本地历史，CLI 总是使用文件存储
func newApp(ctx context.Context, opts *options) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.dataDir != "" {
		cfg.Storage.Dir = opts.dataDir
	}
	if !service.ValidVisitorID(opts.visitorID) {
		return nil, service.ErrInvalidVisitor
	}

	zapLogger, err := logger.NewConsoleLogger(opts.logLevel)
	if err != nil {
		return nil, err
	}

	files, err := kvstore.NewFileStore(cfg.Storage.Dir, zapLogger)
	if err != nil {
		return nil, err
	}

	catalog, err := intent.NewBuiltinCatalog(zapLogger)
	if err != nil {
		return nil, err
	}

	store := conversation.NewStore(files.Slot(kvstore.ScopedKey(cfg.Storage.KeyPrefix, opts.visitorID)), cfg.MaxMessages, zapLogger)
	store.LoadAll(ctx)

	replyOpts := service.ReplyOptions{TypingDelay: cfg.TypingDelay}
	if !opts.offline && cfg.Backend.BackendActive() {
		replyOpts.Backend = client.NewBackendClient(cfg.Backend.APIBaseURL, cfg.Backend.Timeout(), zapLogger)
	}

	return &app{
		cfg:     cfg,
		catalog: catalog,
		replies: service.NewReplyService(store, intent.NewClassifier(catalog), catalog, replyOpts, zapLogger),
		logger:  zapLogger,
	}, nil
}

// chatLoop 逐行读取输入直到 /quit 或 EOF
func (a *app) chatLoop(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if turns := a.replies.Store().All(); len(turns) == 0 {
		fmt.Fprintf(out, "bot> %s\n", a.cfg.Welcome)
	} else {
		for _, t := range turns {
			fmt.Fprintf(out, "%s> %s\n", speaker(t.Role), t.Text)
		}
	}

	notify := func(composing bool) {
		if composing {
			fmt.Fprint(errOut, "bot is typing...\r")
			return
		}
		fmt.Fprint(errOut, "                \r")
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "/quit", "/exit":
			return nil
		case "/clear":
			a.replies.Store().Clear(ctx)
			fmt.Fprintf(out, "bot> %s\n", a.cfg.Welcome)
			continue
		}

		reply, err := a.replies.Handle(ctx, line, notify)
		if errors.Is(err, service.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "bot> %s\n", reply)
	}
}

func speaker(role model.Role) string {
	if role == model.RoleUser {
		return "you"
	}
	return "bot"
}
