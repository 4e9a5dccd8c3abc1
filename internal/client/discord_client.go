package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

const DefaultDiscordAPI = "https://discord.com/api/v10"

// DiscordClient posts notifications as channel messages through the Discord
// REST API using a bot token.
type DiscordClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewDiscordClient(baseURL, token string) *DiscordClient {
	if baseURL == "" {
		baseURL = DefaultDiscordAPI
	}
	return &DiscordClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color,omitempty"`
}

type allowedMentions struct {
	Users []string `json:"users"`
}

type createMessageRequest struct {
	Content         string          `json:"content"`
	Embeds          []embed         `json:"embeds"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type createMessageResponse struct {
	ID string `json:"id"`
}

func (c *DiscordClient) Send(ctx context.Context, n model.Notification) (string, error) {
	if n.ChannelID == "" || n.UserID == "" {
		return "", fmt.Errorf("channel and user are required (channel=%q user=%q)", n.ChannelID, n.UserID)
	}

	reqBody, err := json.Marshal(createMessageRequest{
		Content: fmt.Sprintf("<@%s>", n.UserID),
		Embeds: []embed{{
			Title:       n.Title,
			Description: n.Body,
			Color:       n.Color,
		}},
		AllowedMentions: allowedMentions{Users: []string{n.UserID}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(n.ChannelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var cr createMessageResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if cr.ID == "" {
		return "", fmt.Errorf("missing message id in response body=%q", string(body))
	}

	return cr.ID, nil
}
