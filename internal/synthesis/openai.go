package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const defaultImageModel = "gpt-image-1"

// OpenAIClient wraps the OpenAI image-edits endpoint. Requests are submitted
// as one multipart form carrying the prompt and every image part.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient constructs a client using the provided API key. An empty
// model or baseURL selects the defaults; baseURL is overridable for tests.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = defaultImageModel
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Edit submits the edit request and returns the decoded image bytes. A
// transport failure, a non-2xx status, and a response missing the encoded
// image all yield an error of the same shape.
func (c *OpenAIClient) Edit(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("openai: prompt is required")
	}
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("openai: at least one image is required")
	}

	size := req.Size
	if size == "" {
		size = DefaultSize
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("prompt", req.Prompt); err != nil {
		return nil, fmt.Errorf("openai: write prompt: %w", err)
	}
	if err := form.WriteField("n", strconv.Itoa(count)); err != nil {
		return nil, fmt.Errorf("openai: write count: %w", err)
	}
	if err := form.WriteField("size", size); err != nil {
		return nil, fmt.Errorf("openai: write size: %w", err)
	}
	if err := form.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("openai: write model: %w", err)
	}
	for i, img := range req.Images {
		part, err := form.CreatePart(imagePartHeader(i, img))
		if err != nil {
			return nil, fmt.Errorf("openai: create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("openai: write image part: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("openai: close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/edits", &body)
	if err != nil {
		return nil, fmt.Errorf("openai: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, failure.Error.Message)
	}

	var completion struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(completion.Data) == 0 || completion.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: response contained no image")
	}

	data, err := base64.StdEncoding.DecodeString(completion.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: decode image: %w", err)
	}
	return data, nil
}

func imagePartHeader(index int, img ImagePart) textproto.MIMEHeader {
	filename := img.Filename
	if filename == "" {
		filename = fmt.Sprintf("image-%d.png", index)
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image[%d]"; filename="%s"`, index, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)
	return header
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
