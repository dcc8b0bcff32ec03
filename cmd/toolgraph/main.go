// Command toolgraph sends one user message through the tool-calling agent
// and prints the resulting conversation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/kataras/golog"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/toolgraph/config"
	"github.com/smallnest/toolgraph/graph"
	"github.com/smallnest/toolgraph/log"
	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/model"
	"github.com/smallnest/toolgraph/prebuilt"
	"github.com/smallnest/toolgraph/tool"
)

// ModelFactory builds the model adapter for a configuration.
type ModelFactory func(cfg *config.Config) (model.Model, error)

// DefaultModelFactory connects to the configured provider.
func DefaultModelFactory(cfg *config.Config) (model.Model, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key not set. Set OPENAI_API_KEY or api_key in the config file")
	}

	switch cfg.Provider {
	case config.ProviderLangchain:
		opts := []lcopenai.Option{
			lcopenai.WithModel(cfg.Model),
			lcopenai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := lcopenai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create langchain client: %w", err)
		}
		var callOpts []llms.CallOption
		if cfg.Temperature != nil {
			callOpts = append(callOpts, llms.WithTemperature(float64(*cfg.Temperature)))
		}
		return model.NewLangchainModel(llm, callOpts...), nil
	default:
		var opts []model.OpenAIOption
		if cfg.Temperature != nil {
			opts = append(opts, model.WithTemperature(*cfg.Temperature))
		}
		return model.NewOpenAIModelWithKey(cfg.APIKey, cfg.BaseURL, cfg.Model, opts...), nil
	}
}

// Options carries the dependencies of the commands so tests can replace them.
type Options struct {
	ModelFactory ModelFactory
	Stdout       io.Writer
	Stderr       io.Writer
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.ModelFactory == nil {
		out.ModelFactory = DefaultModelFactory
	}
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}
	return &out
}

func newRootCmd(o *Options) *cobra.Command {
	opts := o.withDefaults()

	rootCmd := &cobra.Command{
		Use:           "toolgraph",
		Short:         "toolgraph - tool-calling agent over a step graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(opts.Stdout)
	rootCmd.SetErr(opts.Stderr)

	var (
		configPath string
		followUp   bool
		verbose    bool
	)

	runCmd := &cobra.Command{
		Use:   "run <message>",
		Short: "Send one message to the agent and print the conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if followUp {
				cfg.Agent.FollowUp = true
			}
			if verbose {
				cfg.LogLevel = "debug"
			}
			return runMessage(cmd, opts, cfg, strings.Join(args, " "), verbose)
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	runCmd.Flags().BoolVar(&followUp, "follow-up", false, "Hand tool results back to the model for a final reply")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every step and edge")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the registered tool schemas as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := newRegistry()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(reg.DescribeAll(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(opts.Stdout, string(data))
			return err
		},
	}

	rootCmd.AddCommand(runCmd, toolsCmd)
	return rootCmd
}

func newRegistry() (*tool.Registry, error) {
	return tool.NewRegistry(tool.Multiply())
}

func newLogger(w io.Writer, level log.LogLevel) *log.GologLogger {
	g := golog.New()
	g.SetOutput(w)
	g.SetPrefix("[toolgraph] ")
	logger := log.NewGologLogger(g)
	logger.SetLevel(level)
	return logger
}

func runMessage(cmd *cobra.Command, opts *Options, cfg *config.Config, text string, verbose bool) error {
	logger := newLogger(opts.Stderr, cfg.Level())
	log.SetDefaultLogger(logger)

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	m, err := opts.ModelFactory(cfg)
	if err != nil {
		return err
	}
	m = model.WithRetry(m, cfg.RetryPolicy())

	agentOpts := append(cfg.AgentOptions(), prebuilt.WithLogger(logger))
	if verbose {
		tracer := graph.NewTracer()
		tracer.AddHook(graph.NewLoggingHook(logger))
		agentOpts = append(agentOpts, prebuilt.WithTracer(tracer))
	}

	agent, err := prebuilt.CreateToolCallingAgent(m, reg, agentOpts...)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	out, runErr := prebuilt.Run(cmd.Context(), agent, message.NewLog(message.User(text)))
	renderTranscript(opts.Stdout, out.Snapshot())
	if runErr != nil {
		return fmt.Errorf("agent error: %w", runErr)
	}
	return nil
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(10)
	roleColors = map[message.Role]lipgloss.Color{
		message.RoleSystem:    lipgloss.Color("8"),
		message.RoleUser:      lipgloss.Color("12"),
		message.RoleAssistant: lipgloss.Color("10"),
		message.RoleTool:      lipgloss.Color("11"),
	}
	callStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func renderTranscript(w io.Writer, snap message.Snapshot) {
	for _, msg := range snap.Messages() {
		label := labelStyle.Foreground(roleColors[msg.Role]).Render(string(msg.Role))

		var lines []string
		if msg.Content != "" {
			content := msg.Content
			if msg.IsError {
				content = errorStyle.Render(content)
			}
			lines = append(lines, content)
		}
		for _, call := range msg.ToolCalls {
			args, err := message.EncodeArguments(call.Arguments)
			if err != nil {
				args = errorStyle.Render("<invalid arguments>")
			}
			lines = append(lines, callStyle.Render(fmt.Sprintf("-> %s(%s) [%s]", call.Name, args, call.ID)))
		}
		if msg.ToolCallID != "" {
			lines = append(lines, callStyle.Render(fmt.Sprintf("<- %s [%s]", msg.Name, msg.ToolCallID)))
		}

		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, label, strings.Join(lines, "\n")))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
