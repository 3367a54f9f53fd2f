// Command-line interface for the fake agent: serve it, or talk to one.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fakeagent/fakeagent/client"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/server"
	"fakeagent/fakeagent/types"
	"fakeagent/fakeagent/utils/color"
	"fakeagent/fakeagent/utils/jsonutils"
	"fakeagent/fakeagent/utils/logging"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fakeagent",
	Short: "A placeholder agent that answers threads with canned content",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		if cmd.Flags().Changed("delay") {
			cfg.RunDelay, _ = cmd.Flags().GetDuration("delay")
		}
		logging.InitLogger(cfg.LogDir)
		defer logging.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		srv, err := server.New(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.ColorInfo("Agent listening on "+cfg.Addr))
		return srv.Run()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Send a one-message thread to an agent and print the reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		stream, _ := cmd.Flags().GetBool("stream")
		threadID, _ := cmd.Flags().GetString("thread-id")
		clientID, _ := cmd.Flags().GetString("client-id")
		if threadID == "" {
			threadID = uuid.New().String()
		}

		c := client.New(url)
		c.Token, _ = cmd.Flags().GetString("token")
		thread := client.UserThread(threadID, clientID, args[0], time.Now().UTC().Format(time.RFC3339))
		asJSON, _ := cmd.Flags().GetBool("json")
		return runThread(cmd.Context(), cmd.OutOrStdout(), c, thread, runOptions{stream: stream, json: asJSON})
	},
}

type runOptions struct {
	stream bool
	json   bool
}

func runThread(ctx context.Context, out io.Writer, c *client.Client, thread types.Thread, opts runOptions) error {
	if !opts.stream {
		res, err := c.Run(ctx, thread)
		if err != nil {
			return err
		}
		if opts.json {
			fmt.Fprintln(out, jsonutils.ToJSON(res))
			return nil
		}
		printManifest(out, res.Manifest)
		for _, a := range res.Activities {
			printActivity(out, a)
		}
		fmt.Fprintln(out, color.ColorFinalSuccess("done"))
		return nil
	}

	err := c.Stream(ctx, thread, func(f types.RawFrame) error {
		if opts.json {
			fmt.Fprintln(out, jsonutils.ToJSON(f))
			return nil
		}
		switch f.Event {
		case types.EventManifest:
			var m types.VersionManifest
			if err := json.Unmarshal(f.Data, &m); err != nil {
				return err
			}
			printManifest(out, m)
		case types.EventActivity:
			var a types.ActivityResponse
			if err := json.Unmarshal(f.Data, &a); err != nil {
				return err
			}
			printActivity(out, a)
		}
		return nil
	})
	var agentErr *client.AgentError
	if errors.As(err, &agentErr) {
		fmt.Fprintln(out, color.ColorError("agent error: "+agentErr.Message))
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, color.ColorFinalSuccess("done"))
	return nil
}

func printManifest(out io.Writer, m types.VersionManifest) {
	fmt.Fprintln(out, color.ColorInfo(fmt.Sprintf("agent %s (%s)", m.Version, m.Env)))
}

func printActivity(out io.Writer, a types.ActivityResponse) {
	text, ok := a.Content.Text()
	if !ok {
		text = string(a.Content.Raw())
	}
	fmt.Fprintf(out, "%s %s\n\n", color.ColorAgentResponse(a.Role+">"), text)
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (overrides AGENT_ADDR)")
	serveCmd.Flags().Duration("delay", time.Second, "Simulated delay before each activity")

	runCmd.Flags().String("url", "http://localhost:8000", "Agent base URL")
	runCmd.Flags().Bool("stream", false, "Use the streaming endpoint")
	runCmd.Flags().String("thread-id", "", "Thread id (random when empty)")
	runCmd.Flags().String("client-id", "cli", "Client id")
	runCmd.Flags().Bool("json", false, "Print frames as JSON")
	runCmd.Flags().String("token", "", "Bearer token for agents with JWT_SECRET set")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
