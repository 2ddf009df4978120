package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
)

var (
	threadID string

	promptStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	attachmentStyle = lipgloss.NewStyle().Faint(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Reads one message per line from stdin. /reset forgets the thread,
/exit or end of input quits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx, appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		if threadID == "" {
			threadID = uuid.NewString()
		}
		return chatLoop(ctx, a.runner, threadID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx, appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		if threadID == "" {
			threadID = uuid.NewString()
		}
		res, err := a.runner.Invoke(ctx, model.TurnInput{
			ThreadID: threadID,
			Message:  strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// interruptContext is cancelled on SIGINT or SIGTERM, or when stop is called.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	chatCmd.Flags().StringVar(&threadID, "thread", "", "thread id to resume (default: a new uuid)")
	askCmd.Flags().StringVar(&threadID, "thread", "", "thread id to continue (default: a new uuid)")
}

func chatLoop(ctx context.Context, runner graph.Runner, thread string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "thread %s\n", thread)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := runner.Reset(ctx, thread); err != nil {
				return err
			}
			fmt.Fprintln(out, attachmentStyle.Render("conversation cleared"))
			continue
		}

		res, err := runner.Invoke(ctx, model.TurnInput{ThreadID: thread, Message: line})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, res)
	}
}

func printResult(out io.Writer, res *model.TurnResult) {
	for _, chunk := range res.Chunks {
		fmt.Fprintln(out, assistantStyle.Render(chunk))
		fmt.Fprintln(out)
	}
	if att := res.Attachment; att != nil {
		where := att.URL
		if where == "" {
			where = fmt.Sprintf("%d bytes inline", len(att.CSV))
		}
		fmt.Fprintln(out, attachmentStyle.Render(fmt.Sprintf("[%s] %s", att.Name, where)))
	}
}
