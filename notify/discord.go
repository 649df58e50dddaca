package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

// readyTimeout bounds how long a send waits for the gateway handshake
// before treating the channel as not delivered.
const readyTimeout = 10 * time.Second

const embedGreen = 0x57F287

// Notifier is the outbound notification channel. Send reports delivered or
// not; a not-delivered record falls back to console-only output and never
// aborts a scan.
type Notifier interface {
	Send(rec scanner.ServerRecord) bool
	Close()
}

// Unavailable is the resolved-at-startup variant for when no channel is
// configured. Every send is simply not delivered.
func Unavailable() Notifier { return unavailable{} }

type unavailable struct{}

func (unavailable) Send(scanner.ServerRecord) bool { return false }
func (unavailable) Close()                         {}

// DiscordNotifier posts found servers as embeds to one channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	ready     chan struct{}
	readyOnce sync.Once
	log       *slog.Logger
}

// NewDiscord opens a gateway session. The connection completes
// asynchronously; sends wait for readiness with a bounded timeout.
func NewDiscord(token, channelID string, log *slog.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	n := &DiscordNotifier{
		session:   session,
		channelID: channelID,
		ready:     make(chan struct{}),
		log:       log,
	}
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		n.log.Info("discord connected", "user", r.User.Username)
		n.readyOnce.Do(func() { close(n.ready) })
	})
	session.Identify.Intents = discordgo.IntentsGuildMessages

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return n, nil
}

// WaitReady blocks until the gateway handshake finished or the timeout
// elapsed.
func (n *DiscordNotifier) WaitReady(timeout time.Duration) bool {
	select {
	case <-n.ready:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Send posts one embed. Returns false on any failure, including a gateway
// that never became ready.
func (n *DiscordNotifier) Send(rec scanner.ServerRecord) bool {
	if !n.WaitReady(readyTimeout) {
		n.log.Warn("discord gateway not ready, skipping notification", "ip", rec.IP)
		return false
	}

	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, buildEmbed(rec)); err != nil {
		n.log.Warn("discord send failed", "ip", rec.IP, "error", err)
		return false
	}
	return true
}

// Close shuts the gateway session down.
func (n *DiscordNotifier) Close() {
	if err := n.session.Close(); err != nil {
		n.log.Debug("discord session close failed", "error", err)
	}
}

func buildEmbed(rec scanner.ServerRecord) *discordgo.MessageEmbed {
	whitelist := "No/Unknown"
	if rec.PossibleWhitelist {
		whitelist = "Yes"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Minecraft Server Found: %s:%d", rec.IP, rec.Port),
		Description: fmt.Sprintf("Found an open Minecraft server at %s:%d", rec.IP, rec.Port),
		Color:       embedGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Version", Value: orDash(rec.Version), Inline: true},
			{Name: "Players", Value: fmt.Sprintf("%d/%d", rec.PlayersOnline, rec.PlayersMax), Inline: true},
			{Name: "Latency", Value: fmt.Sprintf("%.1fms", rec.LatencyMs), Inline: true},
			{Name: "Possible Whitelist", Value: whitelist, Inline: true},
			{Name: "Description", Value: orDash(truncate(rec.Description, 1024))},
		},
	}
	if len(rec.PlayerSamples) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Online Players",
			Value: truncate(joinSamples(rec.PlayerSamples), 1024),
		})
	}
	return embed
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
