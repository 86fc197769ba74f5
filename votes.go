package kai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetVotes lists the votes recorded for a chat.
func (c *Client) GetVotes(ctx context.Context, chatID string) ([]Vote, error) {
	if chatID == "" {
		return nil, fmt.Errorf("kai: chat id required")
	}
	var votes []Vote
	if err := c.doJSON(ctx, http.MethodGet, "/api/vote?chatId="+url.QueryEscape(chatID), nil, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// Vote records a thumbs up/down on an assistant message.
func (c *Client) Vote(ctx context.Context, chatID, messageID string, voteType VoteType) (*Vote, error) {
	if voteType != VoteUp && voteType != VoteDown {
		return nil, fmt.Errorf("kai: invalid vote type %q", voteType)
	}
	payload := Vote{ChatID: chatID, MessageID: messageID, Type: voteType}
	var vote Vote
	if err := c.doJSON(ctx, http.MethodPatch, "/api/vote", payload, &vote); err != nil {
		return nil, err
	}
	return &vote, nil
}

// Upvote is Vote with VoteUp.
func (c *Client) Upvote(ctx context.Context, chatID, messageID string) (*Vote, error) {
	return c.Vote(ctx, chatID, messageID, VoteUp)
}

// Downvote is Vote with VoteDown.
func (c *Client) Downvote(ctx context.Context, chatID, messageID string) (*Vote, error) {
	return c.Vote(ctx, chatID, messageID, VoteDown)
}
