// Package chatcmder provides the chat command: the site's chat widget in the
// terminal.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jlsoftware/jlsite/pkg/chat"
	"github.com/jlsoftware/jlsite/pkg/cliui"
	"github.com/jlsoftware/jlsite/pkg/config"
	"github.com/jlsoftware/jlsite/pkg/dotdir"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	endpoint       string
	publishableKey string
	timeout        string
	configDir      string
	resume         bool
	markdown       bool
	debug          bool

	// printed is how much of the current reply has been written in plain mode.
	printed int

	in  io.Reader
	out io.Writer
	err io.Writer

	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagChatEndpoint,
	config.FlagPublishableKey,
	config.FlagChatTimeout,
}

const chatLongDesc string = `Chat with the JL Software site assistant from the terminal.

Replies stream in as they are generated. Commands:
  /reset   start a new conversation
  /exit    quit (Ctrl+D also quits)

Ctrl+C while a reply is streaming stops that reply.

Every completed reply saves the conversation to .jlsite/transcript.json;
--resume continues from it.

Examples:
  jlsite chat
  jlsite chat --resume
  jlsite chat --endpoint https://jlsoftware.example/functions/v1/ai-chat`

const chatShortDesc string = "Chat with the site assistant"

func NewChatCmd() *cobra.Command {
	return newChatCmd(&chatCommander{})
}

func newChatCmd(cmder *chatCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.endpoint = v.GetString("chat.endpoint")
			cmder.publishableKey = v.GetString("chat.publishable_key")
			cmder.timeout = v.GetString("chat.timeout")

			if !cmd.Flags().Changed("markdown") {
				cmder.markdown = isTerminal(cmd.OutOrStdout())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagChatEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublishableKey, &cmder.publishableKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagChatTimeout, &cmder.timeout)
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the last saved conversation")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render replies as markdown (default when attached to a terminal)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.logger = logger.Nop()
	if c.debug {
		c.logger = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(c.err))
	}

	timeout, err := config.ParseTimeout(c.timeout)
	if err != nil {
		return err
	}

	client, err := chat.NewClient(chat.ClientConfig{
		Endpoint: c.endpoint,
		APIKey:   c.publishableKey,
		Timeout:  timeout,
	}, c.logger)
	if err != nil {
		return err
	}

	ddm := dotdir.NewManager()
	opts := []chat.SessionOption{
		chat.WithSessionLogger(c.logger),
		chat.WithHandler(c.newHandler()),
	}

	fmt.Fprintln(c.out)
	if c.resume {
		saved, err := ddm.LoadTranscript(c.configDir)
		if err != nil {
			return fmt.Errorf("loading transcript: %w", err)
		}
		if saved != nil && len(saved.Messages) > 0 {
			opts = append(opts, chat.WithHistory(saved.Messages))
			fmt.Fprintf(c.out, "  %s Resuming conversation %s\n",
				cliui.SuccessMark,
				cliui.DimStyle.Render(fmt.Sprintf("(%d messages, saved %s)", len(saved.Messages), saved.SavedAt.Local().Format(time.DateTime))),
			)
		} else {
			fmt.Fprintf(c.out, "  %s No saved conversation, starting fresh\n", cliui.DimStyle.Render("●"))
		}
	}

	session := chat.NewSession(client, opts...)
	defer session.Close()

	fmt.Fprintf(c.out, "  %s %s\n",
		cliui.KeyStyle.Render("Endpoint:"),
		cliui.NameStyle.Render(c.endpoint),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset starts over, /exit or Ctrl+D quits."))

	if msgs := session.Messages(); len(msgs) > 0 {
		c.printAssistant(msgs[len(msgs)-1].Content)
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/reset":
			if err := session.Reset(); err != nil {
				return err
			}
			if err := ddm.ClearTranscript(c.configDir); err != nil {
				c.logger.Warn("could not clear saved transcript", "error", err)
			}
			fmt.Fprintf(c.out, "\n  %s New conversation\n\n", cliui.SuccessMark)
			msgs := session.Messages()
			if len(msgs) > 0 {
				c.printAssistant(msgs[0].Content)
			}
			continue
		}

		err := c.send(ctx, session, input)
		switch {
		case errors.Is(err, context.Canceled):
			fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("(stopped)"))
		case err != nil:
			// Already reported through the handler.
			fmt.Fprintln(c.out)
		default:
			fmt.Fprintln(c.out)
		}

		c.save(ddm, session.Messages())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// send runs one turn. Ctrl+C cancels the turn instead of the process while
// the reply streams.
func (c *chatCommander) send(ctx context.Context, session *chat.Session, input string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			session.Cancel()
		case <-done:
		}
	}()

	if !c.markdown {
		c.printed = 0
		fmt.Fprint(c.out, assistantPrompt)
		return session.Send(ctx, input)
	}

	before := len(session.Messages())
	err := cliui.Step(c.out, "Thinking", func() error {
		return session.Send(ctx, input)
	})
	if err != nil {
		return err
	}

	// An empty stream leaves no assistant message after the user's.
	msgs := session.Messages()
	if len(msgs) <= before+1 || msgs[len(msgs)-1].Role != llm.RoleAssistant {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("(no reply)"))
		return nil
	}
	c.printAssistant(msgs[len(msgs)-1].Content)
	return nil
}

func (c *chatCommander) printAssistant(content string) {
	if !c.markdown {
		fmt.Fprintf(c.out, "%s%s\n\n", assistantPrompt, content)
		return
	}

	rendered, err := cliui.RenderMarkdown(content, terminalWidth(c.out))
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprintf(c.out, "%s\n%s\n", assistantPrompt, strings.TrimRight(rendered, "\n"))
}

func (c *chatCommander) save(ddm *dotdir.Manager, msgs []llm.Message) {
	err := ddm.SaveTranscript(&dotdir.SavedTranscript{
		SavedAt:  time.Now().UTC(),
		Endpoint: c.endpoint,
		Messages: msgs,
	}, c.configDir)
	if err != nil {
		c.logger.Warn("could not save transcript", "error", err)
	}
}

// newHandler prints streamed text as it arrives in plain mode and reports
// failures in both modes.
func (c *chatCommander) newHandler() chat.Handler {
	return chat.HandlerFuncs{
		Update: func(_ int, msg llm.Message) {
			if c.markdown {
				return
			}
			n := c.printed
			if n > len(msg.Content) {
				n = 0
			}
			fmt.Fprint(c.out, msg.Content[n:])
			c.printed = len(msg.Content)
		},
		Error: func(n chat.Notification) {
			fmt.Fprintf(c.err, "\n  %s %s %s\n",
				cliui.FailMark,
				cliui.ErrorStyle.Render(n.Title+":"),
				n.Description,
			)
			if c.debug && n.Err != nil {
				fmt.Fprintf(c.err, "    %s\n", cliui.DimStyle.Render(n.Err.Error()))
			}
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return min(width-4, 100)
}
