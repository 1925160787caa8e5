package chatagent

import (
	"strings"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/types"
)

// RenderMessage renders one message as "[from]:content" on a single line.
func RenderMessage(m types.Message) string {
	return "[" + m.From + "]:" + strings.ReplaceAll(m.Content, "\n", " ")
}

func renderLines(msgs []types.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = RenderMessage(m)
	}
	return out
}

// RenderHistory joins rendered messages with a blank line.
func RenderHistory(lines []string) string {
	return strings.Join(lines, "\n\n")
}

// RenderCandidates joins rendered candidate messages one per line.
func RenderCandidates(msgs []types.Message) string {
	return strings.Join(renderLines(msgs), "\n")
}

// RenderRoles renders "alias: description" per participant.
func RenderRoles(roster []types.Participant) string {
	lines := make([]string, len(roster))
	for i, p := range roster {
		lines[i] = p.Alias + ": " + p.Description
	}
	return strings.Join(lines, "\n")
}

// CallPrompt builds the reply prompt from history lines.
func CallPrompt(spec agent.Spec, history []string) string {
	var prompts []string
	if spec.PrefixPrompt != "" {
		prompts = append(prompts, spec.PrefixPrompt)
	}
	if spec.IncludeName {
		prompts = append(prompts, "Your name is "+spec.Alias+", "+spec.Description)
	}
	if spec.UseMarkdown {
		prompts = append(prompts, "use markdown to format response")
	}
	if spec.IncludeHistory {
		prompts = append(prompts, "###chat history###\n"+RenderHistory(history)+"\n###")
	}
	if spec.SuffixPrompt != "" {
		prompts = append(prompts, spec.SuffixPrompt)
	}
	return strings.Join(prompts, "\n")
}

// RolePlayPrompt asks the model to pick the next speaker from roster.
func RolePlayPrompt(history []string, roster []types.Participant) string {
	return "### role information###\n" +
		RenderRoles(roster) + "\n" +
		"### end of role information ###\n\n" +
		"### conversation ###\n" +
		RenderHistory(history) + "\n" +
		"### end of conversation ###\n\n" +
		"You are in a multi-role play game and your task is to continue writing conversation. " +
		"Carefully pick a role based on context. Put sender's name in square brackets. Explain why you pick this role.\n" +
		"(e.g: [sender]: // short and precise message)"
}

// AskPrompt asks the model to choose the most reasonable candidate reply.
func AskPrompt(candidates []types.Message, history []string, roster []types.Participant) string {
	return "\n### role information ###\n" +
		RenderRoles(roster) + "\n" +
		"### end of role information ###\n\n" +
		"### conversation ###\n" +
		RenderHistory(history) + "\n" +
		"### end of conversation ###\n\n" +
		"### candidate messages ###\n" +
		RenderCandidates(candidates) + "\n" +
		"### end of candidate messages ###\n\n" +
		"You are in a role play game, Carefully choose a response from candidate messages to make the conversation reasonable. " +
		"Put sender's name in square brackets\n" +
		"(e.g: [sender]: // message)"
}
