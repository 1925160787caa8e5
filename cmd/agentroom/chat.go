package main

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/api"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 💬 chat 交互命令
// =============================================================================

type chatOptions struct {
	group     string
	agents    []string
	policy    string
	maxRounds int
}

func newChatCmd(opts *globalOptions) *cobra.Command {
	co := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a group interactively",
		Long: `Read lines from stdin and send each one to the group as the user.
Agent replies are printed as they come back, one colour per speaker.

Commands inside the session:
  /history   print the whole conversation
  /quit      leave the session`,
		Example: `  agentroom chat --group weekend-trip
  agentroom chat --group demo --agents Bob,Carol --policy broadcast`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, newAPIClient(opts), co)
		},
	}
	cmd.Flags().StringVarP(&co.group, "group", "g", "", "Group name")
	cmd.Flags().StringSliceVar(&co.agents, "agents", nil, "Create the group with these agents when it does not exist")
	cmd.Flags().StringVar(&co.policy, "policy", "", "Orchestration policy: turn_taking or broadcast (default: server setting)")
	cmd.Flags().IntVar(&co.maxRounds, "max-rounds", 0, "Round budget per message (default: server setting)")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func runChat(cmd *cobra.Command, client *apiClient, co *chatOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	g, err := client.GetGroup(ctx, co.group)
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound && len(co.agents) > 0:
		if g, err = client.CreateGroup(ctx, co.group, co.agents); err != nil {
			return err
		}
		fmt.Fprintln(out, color.GreenString("created group %s", g.Name))
	case err != nil:
		return err
	}

	p := newPalette()
	fmt.Fprintf(out, "%s %s [%s]\n", color.CyanString("group"), g.Name, strings.Join(g.Agents, ", "))
	fmt.Fprintln(out, color.HiBlackString("type /quit to leave"))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, p.speaker(types.UserAlias)+"> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			g, err := client.GetGroup(ctx, co.group)
			if err != nil {
				return err
			}
			printMessages(out, p, g.Conversation)
			continue
		}

		req := api.SendMessageRequest{
			MessageInput: api.MessageInput{Content: line},
			Policy:       conversation.PolicyName(co.policy),
		}
		if cmd.Flags().Changed("max-rounds") {
			req.MaxRounds = conversation.Rounds(co.maxRounds)
		}
		res, err := client.Send(ctx, co.group, req)
		if err != nil {
			fmt.Fprintln(out, color.RedString("error: %v", err))
			continue
		}
		// 第一条是刚发出的用户消息
		replies := res.Appended
		if len(replies) > 0 && replies[0].IsFromUser() {
			replies = replies[1:]
		}
		printMessages(out, p, replies)
		fmt.Fprintln(out, color.HiBlackString("-- %s after %d round(s)", res.Reason, res.Rounds))
	}
}

func printMessages(w io.Writer, p *palette, msgs []types.Message) {
	for _, m := range msgs {
		if m.Failed() {
			fmt.Fprintf(w, "%s: %s\n", p.speaker(m.From), color.RedString("[failed] %s", m.Error))
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", p.speaker(m.From), m.Content)
	}
}

// palette 为每个发言者固定一种颜色
type palette struct {
	colors []*color.Color
	user   *color.Color
}

func newPalette() *palette {
	return &palette{
		colors: []*color.Color{
			color.New(color.FgCyan, color.Bold),
			color.New(color.FgMagenta, color.Bold),
			color.New(color.FgYellow, color.Bold),
			color.New(color.FgBlue, color.Bold),
			color.New(color.FgHiGreen, color.Bold),
			color.New(color.FgHiRed, color.Bold),
		},
		user: color.New(color.FgGreen, color.Bold),
	}
}

func (p *palette) speaker(alias string) string {
	if strings.EqualFold(alias, types.UserAlias) {
		return p.user.Sprint(alias)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(alias)))
	return p.colors[h.Sum32()%uint32(len(p.colors))].Sprint(alias)
}
