package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardroom-ai/boardroom/debate"
	"github.com/boardroom-ai/boardroom/server"
)

var startCmd = &cobra.Command{
	Use:   "start <topic>",
	Short: "Start a debate session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStart,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List debate sessions",
	RunE:  runList,
}

var statusCmd = &cobra.Command{
	Use:   "status <debate-id>",
	Short: "Show a session with its outputs and exchanges",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var stopCmd = &cobra.Command{
	Use:   "stop <debate-id>",
	Short: "Stop a running debate",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

var tailCmd = &cobra.Command{
	Use:   "tail <debate-id>",
	Short: "Stream live debate updates",
	Args:  cobra.ExactArgs(1),
	RunE:  runTail,
}

var reportCmd = &cobra.Command{
	Use:   "report <debate-id>",
	Short: "Fetch the formatted debate report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate session statistics",
	RunE:  runStats,
}

var (
	clientAddr         string
	startMaxIterations int
	startFollow        bool
	listPage           int
	listLimit          int
	listStatus         string
	listJSON           bool
	statusJSON         bool
	reportRender       bool
	reportMessages     bool
)

func init() {
	rootCmd.AddCommand(startCmd, listCmd, statusCmd, stopCmd, tailCmd, reportCmd, statsCmd)
	addDebateFlagAliases(startCmd, listCmd, statusCmd, stopCmd, tailCmd, reportCmd, statsCmd)

	for _, cmd := range []*cobra.Command{startCmd, listCmd, statusCmd, stopCmd, tailCmd, reportCmd, statsCmd} {
		cmd.Flags().StringVar(&clientAddr, "addr", "", "Boardroom server address")
	}

	startCmd.Flags().IntVarP(&startMaxIterations, "iterations", "i", 0, "Maximum debate iterations")
	startCmd.Flags().BoolVarP(&startFollow, "follow", "f", false, "Stream updates after starting")

	listCmd.Flags().IntVar(&listPage, "page", 0, "Page number")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Sessions per page")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	reportCmd.Flags().BoolVar(&reportRender, "render", false, "Render the report as styled markdown")
	reportCmd.Flags().BoolVar(&reportMessages, "messages", false, "Parse the report into historical messages")
}

func resolveClientAddr() string {
	if strings.TrimSpace(clientAddr) != "" {
		return clientAddr
	}
	if env := strings.TrimSpace(os.Getenv("BOARDROOM_ADDR")); env != "" {
		return env
	}
	return fmt.Sprintf("127.0.0.1:%d", server.DefaultPort)
}

func runStart(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(strings.Join(args, " "))
	client := server.NewClient(resolveClientAddr())
	session, err := client.Start(cmd.Context(), topic, startMaxIterations)
	if err != nil {
		return err
	}
	fmt.Printf("Started debate %s: %s\n", session.ID, session.Topic)
	if !startFollow {
		return nil
	}
	return streamDebateEvents(cmd.Context(), client, session.ID)
}

func runList(cmd *cobra.Command, _ []string) error {
	client := server.NewClient(resolveClientAddr())
	page, err := client.List(cmd.Context(), listPage, listLimit, listStatus)
	if err != nil {
		return err
	}
	if listJSON {
		return encodeJSONToStdout(page)
	}
	if len(page.Sessions) == 0 {
		fmt.Println("No debate sessions found.")
		return nil
	}

	rows := make([][]string, 0, len(page.Sessions))
	for _, session := range page.Sessions {
		rows = append(rows, []string{
			session.ID,
			string(session.Status),
			string(session.CurrentPhase),
			truncateTableCell(session.Topic),
			session.StartTime.Local().Format(time.DateTime),
		})
	}
	fmt.Print(formatTable([]string{"ID", "STATUS", "PHASE", "TOPIC", "STARTED"}, rows))
	if page.Pages > 1 {
		fmt.Printf("\npage %d of %d (%d total)\n", page.Page, page.Pages, page.Total)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := server.NewClient(resolveClientAddr())
	session, outputs, exchanges, err := client.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if statusJSON {
		return encodeJSONToStdout(map[string]any{
			"debate":          session,
			"agentOutputs":    outputs,
			"debateExchanges": exchanges,
		})
	}

	fmt.Printf("Debate:     %s\n", session.ID)
	fmt.Printf("Topic:      %s\n", session.Topic)
	fmt.Printf("Status:     %s\n", session.Status)
	fmt.Printf("Phase:      %s\n", session.CurrentPhase)
	fmt.Printf("Iteration:  %d/%d\n", session.CurrentIteration, session.MaxIterations)
	fmt.Printf("Started:    %s\n", session.StartTime.Local().Format(time.DateTime))
	if session.Status.Terminal() && !session.EndTime.IsZero() {
		fmt.Printf("Ended:      %s (%d min)\n", session.EndTime.Local().Format(time.DateTime), session.DurationMinutes)
	}
	fmt.Printf("Outputs:    %d (%d words)\n", session.Summary.TotalAgentOutputs, session.Summary.TotalWordCount)
	fmt.Printf("Exchanges:  %d\n", session.Summary.TotalExchanges)
	if session.ConsensusReached {
		fmt.Printf("Consensus:  yes\n")
		if session.WinningStrategy != "" {
			fmt.Printf("Strategy:   %s\n", session.WinningStrategy)
		}
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	client := server.NewClient(resolveClientAddr())
	session, err := client.Stop(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Stopped debate %s\n", session.ID)
	return nil
}

func runTail(cmd *cobra.Command, args []string) error {
	client := server.NewClient(resolveClientAddr())
	return streamDebateEvents(cmd.Context(), client, args[0])
}

func runReport(cmd *cobra.Command, args []string) error {
	client := server.NewClient(resolveClientAddr())
	report, err := client.Report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if reportMessages {
		messages := debate.ParseReport(report)
		for _, message := range messages {
			fmt.Printf("%s:\n%s\n\n", message.Agent, message.Content)
		}
		return nil
	}
	if reportRender {
		fmt.Println(renderReportMarkdown(report))
		return nil
	}
	fmt.Print(report)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	client := server.NewClient(resolveClientAddr())
	stats, err := client.Stats(cmd.Context())
	if err != nil {
		return err
	}
	rows := [][]string{
		{"total debates", strconv.Itoa(stats.TotalDebates)},
		{"completed", strconv.Itoa(stats.CompletedDebates)},
		{"consensus rate", fmt.Sprintf("%d%%", stats.ConsensusRate)},
		{"avg duration", fmt.Sprintf("%.1f min", stats.AverageDuration)},
	}
	fmt.Print(formatTable([]string{"METRIC", "VALUE"}, rows))
	if len(stats.WinningAgents) > 0 {
		fmt.Println()
		winners := make([][]string, 0, len(stats.WinningAgents))
		for agent, wins := range stats.WinningAgents {
			winners = append(winners, []string{agent, strconv.Itoa(wins)})
		}
		sort.Slice(winners, func(i, j int) bool { return winners[i][0] < winners[j][0] })
		fmt.Print(formatTable([]string{"AGENT", "WINS"}, winners))
	}
	return nil
}

func streamDebateEvents(ctx context.Context, client *server.Client, sessionID string) error {
	events, errCh := client.Stream(ctx, sessionID)
	printer := newEventPrinter(os.Stdout)
	for event := range events {
		printer.Print(event)
	}
	return <-errCh
}
