package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/copybot/core"
	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Copy signal notifications
// ═══════════════════════════════════════════════════════════════════════════════
//
// Features:
//   🟢 FOLLOW signal alerts
//   📊 Cycle summaries when something fired
//   ⚠️ Error alerts from the CLI
//
// ═══════════════════════════════════════════════════════════════════════════════

// messageSender is the subset of *tgbotapi.BotAPI the notifier uses
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot sends copy-trading notifications to a single chat
type TelegramBot struct {
	api    messageSender
	chatID int64
}

var _ core.Notifier = (*TelegramBot)(nil)

// NewTelegramBot creates a new Telegram bot
func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")

	return &TelegramBot{api: api, chatID: chatID}, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// NotifyCopySignal sends a FOLLOW alert
func (b *TelegramBot) NotifyCopySignal(sig *types.CopySignal) error {
	return b.sendMarkdown(formatSignal(sig))
}

// NotifyCycleSummary sends the per-cycle FOLLOW/IGNORE tally
func (b *TelegramBot) NotifyCycleSummary(res *core.CycleResult) error {
	return b.sendMarkdown(formatCycleSummary(res))
}

// NotifyError sends an error alert
func (b *TelegramBot) NotifyError(err error) error {
	return b.sendMarkdown(fmt.Sprintf("⚠️ *ERROR*\n\n`%s`", err.Error()))
}

func formatSignal(sig *types.CopySignal) string {
	label := sig.WalletName
	if label == "" {
		label = types.ShortAddress(sig.Wallet)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🟢 *COPY SIGNAL* | %s\n", escape(label))
	b.WriteString("━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "📊 %s\n", escape(sig.Trade.Question))
	fmt.Fprintf(&b, "🎯 %s *%s* @ *%s¢*\n",
		sig.Trade.Side, sig.Trade.Outcome,
		sig.Trade.Price.Shift(2).StringFixed(1),
	)
	fmt.Fprintf(&b, "💵 Their size: *$%s*\n", sig.Trade.Notional.StringFixed(2))
	if sig.SuggestedSize != nil && sig.MaxPrice != nil {
		fmt.Fprintf(&b, "📦 Copy: *$%s* (max %s¢)\n",
			sig.SuggestedSize.StringFixed(2),
			sig.MaxPrice.Shift(2).StringFixed(1),
		)
	}
	fmt.Fprintf(&b, "🧠 Confidence: *%.0f%%*\n", sig.Confidence*100)
	b.WriteString("━━━━━━━━━━━━━━━━\n")
	for _, r := range sig.Reasons {
		fmt.Fprintf(&b, "• %s\n", escape(r))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCycleSummary(res *core.CycleResult) string {
	follow, ignore := res.Partition()

	msg := fmt.Sprintf(`📊 *CYCLE SUMMARY*
━━━━━━━━━━━━━━━━━━━━

👛 Wallets: *%d* (%d errors)
📥 New trades: *%d*
🟢 Follow: *%d*
⚪ Ignore: *%d*`,
		res.WalletsChecked, res.WalletErrors,
		res.TradesNew,
		len(follow), len(ignore),
	)
	return msg
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func (b *TelegramBot) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
		return err
	}
	return nil
}
