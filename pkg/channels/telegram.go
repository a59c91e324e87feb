package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/reisbot/reisbot/pkg/bus"
	"github.com/reisbot/reisbot/pkg/config"
	"github.com/reisbot/reisbot/pkg/logger"
	"github.com/reisbot/reisbot/pkg/utils"
)

const telegramMaxLen = 4096

// TelegramChannel is the Telegram transport: long polling in, chunked
// sends out. It publishes inbound events to the bus and implements the
// router's Sender interface for the outbound direction.
type TelegramChannel struct {
	*BaseChannel
	bot    *telego.Bot
	config config.TelegramConfig
	ctx    context.Context
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", b, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
		ctx:         context.Background(),
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	logger.InfoC("telegram", "Starting Telegram bot (polling mode)...")
	c.ctx = ctx

	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.setRunning(true)
	logger.InfoCF("telegram", "Telegram bot connected", map[string]interface{}{
		"username": c.bot.Username(),
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					logger.InfoC("telegram", "Updates channel closed")
					return
				}
				switch {
				case update.Message != nil:
					c.handleMessage(ctx, update.Message)
				case update.CallbackQuery != nil:
					c.handleCallback(update.CallbackQuery)
				}
			}
		}
	}()

	return nil
}

func (c *TelegramChannel) Stop(context.Context) error {
	logger.InfoC("telegram", "Stopping Telegram bot...")
	c.setRunning(false)
	return nil
}

func (c *TelegramChannel) handleMessage(ctx context.Context, message *telego.Message) {
	user := message.From
	if user == nil {
		return
	}

	userID := fmt.Sprintf("%d", user.ID)
	senderID := userID
	if user.Username != "" {
		senderID = fmt.Sprintf("%s|%s", userID, user.Username)
	}

	if !c.IsAllowed(userID) && !c.IsAllowed(senderID) {
		logger.DebugCF("telegram", "Message rejected by allowlist", map[string]interface{}{
			"user_id":  userID,
			"username": user.Username,
		})
		return
	}

	if message.Text == "" {
		return
	}

	chatID := fmt.Sprintf("%d", message.Chat.ID)
	logger.DebugCF("telegram", "Received message", map[string]interface{}{
		"sender_id": senderID,
		"chat_id":   chatID,
		"preview":   utils.Truncate(message.Text, 50),
	})

	// Typing indicator while the handler works.
	if err := c.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(message.Chat.ID), telego.ChatActionTyping)); err != nil {
		logger.DebugCF("telegram", "Failed to send chat action", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.publish(bus.InboundEvent{
		SenderID: senderID,
		ChatID:   chatID,
		Kind:     bus.KindMessage,
		Content:  message.Text,
		Metadata: map[string]string{
			"message_id": fmt.Sprintf("%d", message.MessageID),
			"username":   user.Username,
			"is_group":   fmt.Sprintf("%t", message.Chat.Type != "private"),
		},
	})
}

func (c *TelegramChannel) handleCallback(query *telego.CallbackQuery) {
	userID := fmt.Sprintf("%d", query.From.ID)
	senderID := userID
	if query.From.Username != "" {
		senderID = fmt.Sprintf("%s|%s", userID, query.From.Username)
	}

	if !c.IsAllowed(userID) && !c.IsAllowed(senderID) {
		logger.DebugCF("telegram", "Callback rejected by allowlist", map[string]interface{}{
			"user_id": userID,
		})
		c.AckCallback(query.ID, "")
		return
	}

	if query.Message == nil {
		c.AckCallback(query.ID, "")
		return
	}
	chatID := fmt.Sprintf("%d", query.Message.GetChat().ID)

	c.publish(bus.InboundEvent{
		SenderID:   senderID,
		ChatID:     chatID,
		Kind:       bus.KindCallback,
		CallbackID: query.ID,
		Token:      query.Data,
	})
}

// SendText delivers text to a chat, chunked at Telegram's message size
// limit. Chunks beyond the first are prefixed with their position so a
// split reply still reads in order.
func (c *TelegramChannel) SendText(chatID, text string) {
	id, err := parseChatID(chatID)
	if err != nil {
		logger.ErrorCF("telegram", "Invalid chat ID", map[string]interface{}{"chat_id": chatID})
		return
	}

	chunks := splitLargeMessage(telegramHTML(text), telegramMaxLen)
	for i, chunk := range chunks {
		content := chunk
		if len(chunks) > 1 {
			content = fmt.Sprintf("[%d/%d]\n%s", i+1, len(chunks), chunk)
		}
		c.sendChunk(id, content, i+1)
	}
}

// sendChunk tries HTML first and falls back to plain text when
// Telegram rejects the markup.
func (c *TelegramChannel) sendChunk(chatID int64, content string, chunkNo int) {
	msg := tu.Message(tu.ID(chatID), content)
	msg.ParseMode = telego.ModeHTML

	if _, err := c.bot.SendMessage(c.ctx, msg); err != nil {
		logger.WarnCF("telegram", "HTML parse failed, falling back to plain text", map[string]interface{}{
			"chunk": chunkNo,
			"error": err.Error(),
		})
		msg.ParseMode = ""
		if _, err := c.bot.SendMessage(c.ctx, msg); err != nil {
			logger.ErrorCF("telegram", "Failed to send message chunk", map[string]interface{}{
				"chunk": chunkNo,
				"error": err.Error(),
			})
		}
	}
}

// SendMenu renders a menu as an inline keyboard.
func (c *TelegramChannel) SendMenu(chatID, text string, menu bus.Menu) {
	id, err := parseChatID(chatID)
	if err != nil {
		logger.ErrorCF("telegram", "Invalid chat ID", map[string]interface{}{"chat_id": chatID})
		return
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(menu.Rows))
	for _, row := range menu.Rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Token))
		}
		rows = append(rows, buttons)
	}

	msg := tu.Message(tu.ID(id), text)
	msg.ReplyMarkup = tu.InlineKeyboard(rows...)
	if _, err := c.bot.SendMessage(c.ctx, msg); err != nil {
		logger.ErrorCF("telegram", "Failed to send menu", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// SendKeyboard sends text with a persistent reply keyboard.
func (c *TelegramChannel) SendKeyboard(chatID, text string, rows [][]string) {
	id, err := parseChatID(chatID)
	if err != nil {
		logger.ErrorCF("telegram", "Invalid chat ID", map[string]interface{}{"chat_id": chatID})
		return
	}

	keyboardRows := make([][]telego.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tu.KeyboardButton(label))
		}
		keyboardRows = append(keyboardRows, buttons)
	}

	msg := tu.Message(tu.ID(id), text)
	msg.ReplyMarkup = tu.Keyboard(keyboardRows...).WithResizeKeyboard()
	if _, err := c.bot.SendMessage(c.ctx, msg); err != nil {
		logger.ErrorCF("telegram", "Failed to send keyboard", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *TelegramChannel) AckCallback(callbackID, text string) {
	err := c.bot.AnswerCallbackQuery(c.ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		logger.WarnCF("telegram", "Failed to answer callback query", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}

// splitLargeMessage splits a message into chunks if it exceeds the
// Telegram message size limit, preferring to break at a newline in the
// last third of a chunk.
func splitLargeMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	remaining := content
	for len(remaining) > 0 {
		chunkSize := maxLen
		if len(remaining) < chunkSize {
			chunkSize = len(remaining)
		}
		if chunkSize == maxLen {
			lastNewline := strings.LastIndex(remaining[:chunkSize], "\n")
			if lastNewline > maxLen*2/3 {
				chunkSize = lastNewline + 1
			}
		}
		chunks = append(chunks, remaining[:chunkSize])
		remaining = remaining[chunkSize:]
	}
	return chunks
}

var (
	reCodeBlock  = regexp.MustCompile("```[\\w]*\\n?([\\s\\S]*?)```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// telegramHTML converts the light markdown the AI collaborator emits
// into Telegram HTML. Everything else is escaped as-is.
func telegramHTML(text string) string {
	if text == "" {
		return ""
	}

	var blocks, inlines []string
	text = reCodeBlock.ReplaceAllStringFunc(text, func(m string) string {
		blocks = append(blocks, reCodeBlock.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00B%d\x00", len(blocks)-1)
	})
	text = reInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		inlines = append(inlines, reInlineCode.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00I%d\x00", len(inlines)-1)
	})

	text = escapeHTML(text)
	text = reBold.ReplaceAllString(text, "<b>$1</b>")

	for i, code := range inlines {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00I%d\x00", i), "<code>"+escapeHTML(code)+"</code>")
	}
	for i, code := range blocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00B%d\x00", i), "<pre><code>"+escapeHTML(code)+"</code></pre>")
	}
	return text
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
