package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const embedColor = 0x7B5EA7

// ErrInvalidWebhookURL is returned for URLs not shaped like
// https://discord.com/api/webhooks/{id}/{token}.
var ErrInvalidWebhookURL = errors.New("invalid discord webhook url")

// DiscordNotifier posts notices to a Discord channel webhook.
type DiscordNotifier struct {
	session   *discordgo.Session
	webhookID string
	token     string
}

// NewDiscordNotifier builds a notifier from a channel webhook URL.
// Webhooks need no bot token, so the session is unauthenticated.
// PRE: webhookURL is a Discord webhook URL
// POST: Returns a notifier or ErrInvalidWebhookURL
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordNotifier{session: session, webhookID: id, token: token}, nil
}

// Notify executes the webhook and waits for the created message.
func (d *DiscordNotifier) Notify(ctx context.Context, n Notice) (string, error) {
	msg, err := d.session.WebhookExecute(d.webhookID, d.token, true, &discordgo.WebhookParams{
		Username: "Son et Astres",
		Embeds:   []*discordgo.MessageEmbed{BuildEmbed(n)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.Error("discord_notify_failed", "title", n.Title, "error", err)
		return "", fmt.Errorf("discord webhook: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.ID, nil
}

// BuildEmbed renders a notice as a Discord embed.
func BuildEmbed(n Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Color:       embedColor,
	}
	if !n.Timestamp.IsZero() {
		embed.Timestamp = n.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	for _, f := range n.Fields {
		if f.Value == "" {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	return embed
}

// ParseWebhookURL extracts the webhook id and token.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" {
		return "", "", ErrInvalidWebhookURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// api/webhooks/{id}/{token}, optionally with an api version segment.
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", ErrInvalidWebhookURL
}
