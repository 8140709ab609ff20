package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"signalforge/internal/models"
)

// Delivery transports one payload to one audience tier. The scheduler only
// decides what goes out and when; the transport lives behind this contract.
type Delivery interface {
	Send(ctx context.Context, tier models.Tier, content string) error
}

// TelegramDelivery posts to a per-tier Telegram chat.
type TelegramDelivery struct {
	client *resty.Client
	token  string
	chats  map[models.Tier]string
}

func NewTelegramDelivery(token string, chats map[models.Tier]string) *TelegramDelivery {
	client := resty.New()
	client.SetBaseURL("https://api.telegram.org")
	client.SetTimeout(15 * time.Second)
	return &TelegramDelivery{client: client, token: token, chats: chats}
}

func (d *TelegramDelivery) Send(ctx context.Context, tier models.Tier, content string) error {
	chatID, ok := d.chats[tier]
	if !ok || chatID == "" {
		return fmt.Errorf("no telegram chat configured for tier %q", tier)
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": chatID,
			"text":    content,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", d.token))
	if err != nil {
		return fmt.Errorf("telegram send to %s tier: %w", tier, err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send to %s tier: status %s", tier, resp.Status())
	}
	return nil
}
