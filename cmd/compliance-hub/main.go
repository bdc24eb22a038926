package main

import (
	"context"
	_ "embed"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/shortuuid/v3"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/agent"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/chat"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/events"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/ui"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// defaults is the embedded application configuration: the query mode set and
// the starter suggestions shown on an empty conversation.
type defaults struct {
	DefaultMode    string      `yaml:"default_mode"`
	Modes          []chat.Mode `yaml:"modes"`
	StarterQueries []string    `yaml:"starter_queries"`
}

func loadDefaults() (*defaults, error) {
	ret := &defaults{}
	if err := yaml.Unmarshal(defaultsYAML, ret); err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded defaults")
	}
	return ret, nil
}

var rootCmd = &cobra.Command{
	Use:   "compliance-hub",
	Short: "Chat with a compliance knowledge agent",
	Long: `compliance-hub is a terminal client for a compliance knowledge agent.

It submits questions under a selectable query mode (general, cross-reference,
gap analysis, checklist, risk assessment), repairs the agent's often slightly
malformed JSON answers, and renders them as structured compliance records.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func initLogging() error {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", viper.GetString("log-level"))
	}
	zerolog.SetGlobalLevel(level)

	writer := os.Stderr
	if isatty.IsTerminal(writer.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: writer})
	}

	logFile := viper.GetString("log-file")
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "could not open log file %s", logFile)
		}
		log.Logger = log.Output(f)
	}

	return nil
}

func newSessionID() string {
	return "sess_" + strings.ToLower(shortuuid.New())
}

func newAgentClient() (*agent.Client, error) {
	apiKey := viper.GetString("api-key")
	if apiKey == "" {
		return nil, errors.New("no API key configured, set --api-key or COMPLIANCE_HUB_API_KEY")
	}

	options := []agent.ClientOption{}
	if url := viper.GetString("agent-url"); url != "" {
		options = append(options, agent.WithBaseURL(url))
	}
	if userID := viper.GetString("user-id"); userID != "" {
		options = append(options, agent.WithUserID(userID))
	}

	return agent.NewClient(apiKey, options...), nil
}

func runChat(ctx context.Context) error {
	cfg, err := loadDefaults()
	if err != nil {
		return err
	}
	modes := chat.NewModeSet(cfg.Modes, cfg.DefaultMode)

	client, err := newAgentClient()
	if err != nil {
		return err
	}

	sessionID := viper.GetString("session-id")
	if sessionID == "" {
		sessionID = newSessionID()
	}
	log.Info().Str("session_id", sessionID).Msg("starting session")

	routerOptions := []events.EventRouterOption{}
	if viper.GetBool("verbose") {
		routerOptions = append(routerOptions, events.WithVerbose())
	}
	router, err := events.NewEventRouter(routerOptions...)
	if err != nil {
		return errors.Wrap(err, "failed to create event router")
	}
	defer func() {
		if err := router.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event router")
		}
	}()

	pm := events.NewPublisherManager()
	pm.SubscribePublisher("ui", router.Publisher)

	controller := chat.NewController(client, modes,
		chat.WithAgentID(viper.GetString("agent-id")),
		chat.WithSessionID(sessionID),
		chat.WithPublisherManager(pm),
	)

	p := tea.NewProgram(
		ui.NewModel(controller, ui.WithStarterQueries(cfg.StarterQueries)),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	router.AddHandler("ui-forward", "ui", func(msg *message.Message) error {
		ev, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping undecodable event")
			return nil
		}
		p.Send(ui.TurnEventMsg{Event: ev})
		return nil
	})

	routerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := router.Run(routerCtx); err != nil {
			log.Error().Err(err).Msg("event router stopped")
		}
	}()
	<-router.Running()

	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "program failed")
	}

	return nil
}

func main() {
	cobra.CheckErr(initFlags())
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

func initFlags() error {
	flags := rootCmd.PersistentFlags()
	flags.String("api-key", "", "Lyzr API key")
	flags.String("agent-id", "69a2714071a7effa8577bfe0", "agent id to converse with")
	flags.String("rag-id", "69a270f6f572c99c0ffbe5ab", "knowledge base id")
	flags.String("user-id", agent.DefaultUserID, "user id sent with agent calls")
	flags.String("agent-url", "", "override the agent API base URL")
	flags.String("rag-url", "", "override the knowledge base API base URL")
	flags.String("session-id", "", "resume an existing session instead of starting a new one")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.Bool("verbose", false, "log event router traffic")

	if err := viper.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "failed to bind flags")
	}
	viper.SetEnvPrefix("COMPLIANCE_HUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newDocsCommand())

	return nil
}
