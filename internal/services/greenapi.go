package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultGreenAPIBaseURL = "https://api.green-api.com"

// GreenAPIService sends WhatsApp messages through the Green API gateway
type GreenAPIService struct {
	baseURL    string
	instanceID string
	apiToken   string
	client     *http.Client
}

// NewGreenAPIService creates a gateway client from environment variables.
// Missing credentials are not an error here: they surface as
// ErrMissingCredentials when a send is attempted.
func NewGreenAPIService() *GreenAPIService {
	baseURL := os.Getenv("GREEN_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGreenAPIBaseURL
	}

	return &GreenAPIService{
		baseURL:    baseURL,
		instanceID: os.Getenv("GREEN_API_INSTANCE_ID"),
		apiToken:   os.Getenv("GREEN_API_API_TOKEN"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether gateway credentials are present.
func (g *GreenAPIService) Configured() bool {
	return g.instanceID != "" && g.apiToken != ""
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	IDMessage string `json:"idMessage"`
}

// SendMessage sends one text message and returns the gateway-assigned
// message id. One attempt, no retries; the caller decides what to surface.
func (g *GreenAPIService) SendMessage(rawNumber, messageText string) (string, error) {
	if !g.Configured() {
		return "", ErrMissingCredentials
	}

	chatID, err := NormalizeChatID(rawNumber)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", g.baseURL, g.instanceID, g.apiToken)
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Message: messageText})
	if err != nil {
		return "", err
	}

	resp, err := g.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("❌ Green API send failed: HTTP %d", resp.StatusCode)
		return "", &GatewayHTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result sendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		// Some gateway deployments answer 200 with a non-JSON body; the
		// message went out, we just have nothing to correlate later.
		log.Printf("⚠️  Green API answered 2xx with unparseable body: %v", err)
		return "", nil
	}

	log.Printf("✅ WhatsApp message sent to %s, idMessage: %s", chatID, result.IDMessage)
	return result.IDMessage, nil
}
