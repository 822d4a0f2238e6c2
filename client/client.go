package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL string) Client {
	return Client{
		baseURL: baseURL,
	}
}

type Client struct {
	baseURL string
}

func (c Client) ChatPost(ctx context.Context, req models.ChatPostRequest) (resp models.ChatPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("chat").String()
	if err != nil {
		return resp, err
	}
	resp, err = jsonapi.Post[models.ChatPostRequest, models.ChatPostResponse](ctx, url, req)
	if err != nil {
		return resp, chatError(err)
	}
	return resp, nil
}

func (c Client) CheckGet(ctx context.Context) (resp models.CheckGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("check").String()
	if err != nil {
		return resp, err
	}
	resp, _, err = jsonapi.Get[models.CheckGetResponse](ctx, url)
	return resp, err
}

// chatError recovers the server's error envelope from a non-2xx response, so
// callers can show the relay's own message rather than a raw HTTP status.
func chatError(err error) error {
	var statusErr jsonapi.InvalidStatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	var envelope models.ChatErrorResponse
	if jsonErr := json.NewDecoder(strings.NewReader(statusErr.Body)).Decode(&envelope); jsonErr != nil || envelope.Error == "" {
		return fmt.Errorf("failed to get a response: status %d", statusErr.Status)
	}
	return fmt.Errorf("%s", envelope.Error)
}
