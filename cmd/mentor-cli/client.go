package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver/responses"
)

// apiClient calls the mentor server's /api endpoints.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(cmd *cobra.Command) (*apiClient, error) {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("a bearer token is required (--token or MENTOR_TOKEN)")
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(server, "/")).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	return &apiClient{http: httpClient}, nil
}

// sendRequest is a send call; File is a local path uploaded as multipart when set.
type sendRequest struct {
	AssistantType string
	Message       string
	History       string
	File          string
}

func (c *apiClient) send(path string, req sendRequest) (*responses.SendMessageResponse, error) {
	var out responses.SendMessageResponse
	r := c.http.R().SetResult(&out).SetError(&responses.ErrorResponse{})

	if req.File != "" {
		form := map[string]string{"message": req.Message}
		if req.AssistantType != "" {
			form["assistantType"] = req.AssistantType
		}
		if req.History != "" {
			form["conversationHistory"] = req.History
		}
		r.SetFormData(form).SetFile("file", req.File)
	} else {
		body := map[string]any{"message": req.Message}
		if req.AssistantType != "" {
			body["assistantType"] = req.AssistantType
		}
		if req.History != "" {
			body["conversationHistory"] = json.RawMessage(req.History)
		}
		r.SetBody(body)
	}

	resp, err := r.Post(path)
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) history(path string) (*responses.HistoryResponse, error) {
	var out responses.HistoryResponse
	resp, err := c.http.R().SetResult(&out).SetError(&responses.ErrorResponse{}).Get(path)
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) clear(path string) (*responses.MessageResponse, error) {
	var out responses.MessageResponse
	resp, err := c.http.R().SetResult(&out).SetError(&responses.ErrorResponse{}).Delete(path)
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*responses.ErrorResponse); ok && apiErr.Message != "" {
		if apiErr.Error != "" {
			return fmt.Errorf("%s (%d): %s", apiErr.Message, resp.StatusCode(), apiErr.Error)
		}
		return fmt.Errorf("%s (%d)", apiErr.Message, resp.StatusCode())
	}
	return fmt.Errorf("server returned %s", resp.Status())
}
