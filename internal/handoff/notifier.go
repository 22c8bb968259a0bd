package handoff

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// Notifier tells advisors about a new ticket.
type Notifier interface {
	Notify(ctx context.Context, ticket *models.HandoffTicket) error
}

// SlackNotifier posts tickets to an advisors channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// slackRequestTimeout caps each Slack API call regardless of the caller's context.
const slackRequestTimeout = 10 * time.Second

// NewSlackNotifier creates a notifier posting to channel with a bot token.
// Extra client options (for example slack.OptionAPIURL) are passed through and may replace the HTTP client.
func NewSlackNotifier(token, channel string, opts ...slack.Option) *SlackNotifier {
	opts = append([]slack.Option{slack.OptionHTTPClient(&http.Client{Timeout: slackRequestTimeout})}, opts...)
	return &SlackNotifier{api: slack.New(token, opts...), channel: channel}
}

// Notify posts the ticket summary.
func (n *SlackNotifier) Notify(ctx context.Context, t *models.HandoffTicket) error {
	header := fmt.Sprintf("Advisor handoff: %s", t.Reason)
	body := fmt.Sprintf("*Question:* %s\n*Suggested action:* %s\n*Confidence:* %.2f", t.Query, t.SuggestedAction, t.Confidence)
	if len(t.Concerns) > 0 {
		body += "\n*Concerns:* " + strings.Join(t.Concerns, "; ")
	}
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, header, false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, body, false, false), nil, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "```"+t.ConversationSummary+"```", false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "ticket "+t.ID+" | session "+t.SessionID, false, false)),
	}
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(header+": "+t.Query, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("post handoff to slack: %w", err)
	}
	return nil
}
